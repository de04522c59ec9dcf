package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
)

type reviewerRepository struct {
	BaseRepository
}

func NewReviewerRepository(base BaseRepository) repository.ReviewerRepository {
	return &reviewerRepository{base}
}

func (r *reviewerRepository) GetByEmail(ctx context.Context, email string) (*model.Reviewer, error) {
	query := `SELECT * FROM reviewers WHERE email = $1`
	var reviewer model.Reviewer
	if err := r.GetDB().GetContext(ctx, &reviewer, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reviewer not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}
	return &reviewer, nil
}

func (r *reviewerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reviewer, error) {
	query := `SELECT * FROM reviewers WHERE id = $1`
	var reviewer model.Reviewer
	if err := r.GetDB().GetContext(ctx, &reviewer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reviewer not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}
	return &reviewer, nil
}
