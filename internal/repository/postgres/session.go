package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
)

type sessionRepository struct {
	BaseRepository
}

func NewSessionRepository(base BaseRepository) repository.SessionRepository {
	return &sessionRepository{base}
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	query := `SELECT * FROM sessions WHERE id = $1`
	var session model.Session
	if err := r.GetDB().GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.Status = model.SessionActive
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt

	query := `
		INSERT INTO sessions (id, patient_id, status, turn_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.GetDB().ExecContext(ctx, query,
		session.ID, session.PatientID, session.Status, session.TurnCount,
		session.CreatedAt, session.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sessions SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status != $1
	`
	result, err := r.GetDB().ExecContext(ctx, query, model.SessionCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to mark session completed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found or already completed")
	}
	return nil
}

func (r *sessionRepository) IncrementTurn(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sessions SET turn_count = turn_count + 1, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.GetDB().ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment turn count: %w", err)
	}
	return nil
}
