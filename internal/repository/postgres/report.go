package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
)

type reportRepository struct {
	BaseRepository
}

func NewReportRepository(base BaseRepository) repository.ReportRepository {
	return &reportRepository{base}
}

// reportRow mirrors the reports table; the SOAP sections live in jsonb
// columns.
type reportRow struct {
	ID            uuid.UUID       `db:"id"`
	SessionID     uuid.UUID       `db:"session_id"`
	PatientID     uuid.UUID       `db:"patient_id"`
	Subjective    json.RawMessage `db:"subjective"`
	Objective     json.RawMessage `db:"objective"`
	Assessment    json.RawMessage `db:"assessment"`
	Plan          json.RawMessage `db:"plan"`
	Department    string          `db:"department"`
	Triage        string          `db:"triage"`
	SourceIDs     pq.StringArray  `db:"source_ids"`
	Version       string          `db:"version"`
	ReviewStatus  string          `db:"review_status"`
	Prescription  string          `db:"prescription"`
	ReviewerNotes string          `db:"reviewer_notes"`
	GeneratedAt   time.Time       `db:"generated_at"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// UpsertTx inserts or refreshes the session's report. The written row stays
// locked until the transaction commits, which serializes the caller's
// screen-and-label sequence against a concurrent review regeneration.
func (r *reportRepository) UpsertTx(ctx context.Context, tx *sqlx.Tx, report *model.ClinicalReport) error {
	row, err := toRow(report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (
			id, session_id, patient_id, subjective, objective, assessment, plan,
			department, triage, source_ids, version, review_status,
			prescription, reviewer_notes, generated_at, created_at, updated_at
		) VALUES (
			:id, :session_id, :patient_id, :subjective, :objective, :assessment, :plan,
			:department, :triage, :source_ids, :version, :review_status,
			:prescription, :reviewer_notes, :generated_at, :created_at, :updated_at
		)
		ON CONFLICT (session_id) DO UPDATE SET
			subjective = EXCLUDED.subjective,
			objective = EXCLUDED.objective,
			assessment = EXCLUDED.assessment,
			plan = EXCLUDED.plan,
			department = EXCLUDED.department,
			triage = EXCLUDED.triage,
			source_ids = EXCLUDED.source_ids,
			version = EXCLUDED.version,
			generated_at = EXCLUDED.generated_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	rows, err := sqlx.NamedQueryContext(ctx, tx, query, row)
	if err != nil {
		return fmt.Errorf("failed to upsert report: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&report.ID); err != nil {
			return fmt.Errorf("failed to scan report id: %w", err)
		}
	}
	return rows.Err()
}

func (r *reportRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClinicalReport, error) {
	query := `SELECT * FROM reports WHERE id = $1`
	var row reportRow
	if err := r.GetDB().GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return fromRow(&row)
}

func (r *reportRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.ClinicalReport, error) {
	query := `SELECT * FROM reports WHERE session_id = $1`
	var row reportRow
	if err := r.GetDB().GetContext(ctx, &row, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get report by session: %w", err)
	}
	return fromRow(&row)
}

func (r *reportRepository) UpdateTriageTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, triage model.TriageLevel, redFlags []string) error {
	var raw json.RawMessage
	if err := tx.GetContext(ctx, &raw, `SELECT objective FROM reports WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to read objective section: %w", err)
	}

	var objective model.ObjectiveSection
	if err := json.Unmarshal(raw, &objective); err != nil {
		return fmt.Errorf("failed to unmarshal objective section: %w", err)
	}
	objective.RedFlags = redFlags

	updated, err := json.Marshal(objective)
	if err != nil {
		return fmt.Errorf("failed to marshal objective section: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE reports SET triage = $1, objective = $2, updated_at = NOW()
		WHERE id = $3
	`, string(triage), updated, id)
	if err != nil {
		return fmt.Errorf("failed to update triage: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("report not found")
	}
	return nil
}

func (r *reportRepository) WithReportLock(ctx context.Context, id uuid.UUID, fn func(tx *sqlx.Tx, report *model.ClinicalReport) error) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var row reportRow
		if err := tx.GetContext(ctx, &row, `SELECT * FROM reports WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("report not found: %w", err)
			}
			return fmt.Errorf("failed to lock report: %w", err)
		}
		report, err := fromRow(&row)
		if err != nil {
			return err
		}
		return fn(tx, report)
	})
}

func (r *reportRepository) UpdateSectionsTx(ctx context.Context, tx *sqlx.Tx, report *model.ClinicalReport) error {
	row, err := toRow(report)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE reports SET
			subjective = $1, objective = $2, assessment = $3, plan = $4,
			review_status = $5, version = $6, updated_at = NOW()
		WHERE id = $7
	`, row.Subjective, row.Objective, row.Assessment, row.Plan,
		row.ReviewStatus, row.Version, report.ID)
	if err != nil {
		return fmt.Errorf("failed to update report sections: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("report not found")
	}
	return nil
}

func (r *reportRepository) UpdateReviewTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.ReviewStatus, prescription, notes string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE reports SET
			review_status = $1, prescription = $2, reviewer_notes = $3, updated_at = NOW()
		WHERE id = $4
	`, string(status), prescription, notes, id)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("report not found")
	}
	return nil
}

func toRow(report *model.ClinicalReport) (*reportRow, error) {
	subjective, err := json.Marshal(report.Subjective)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal subjective section: %w", err)
	}
	objective, err := json.Marshal(report.Objective)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal objective section: %w", err)
	}
	assessment, err := json.Marshal(report.Assessment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assessment section: %w", err)
	}
	plan, err := json.Marshal(report.Plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan section: %w", err)
	}

	return &reportRow{
		ID:            report.ID,
		SessionID:     report.Metadata.SessionID,
		PatientID:     report.Metadata.PatientID,
		Subjective:    subjective,
		Objective:     objective,
		Assessment:    assessment,
		Plan:          plan,
		Department:    report.Metadata.Department,
		Triage:        string(report.Metadata.Triage),
		SourceIDs:     pq.StringArray(report.Metadata.SourceIDs),
		Version:       report.Metadata.Version,
		ReviewStatus:  string(report.ReviewStatus),
		Prescription:  report.Prescription,
		ReviewerNotes: report.ReviewerNotes,
		GeneratedAt:   report.Metadata.GeneratedAt,
		CreatedAt:     report.CreatedAt,
		UpdatedAt:     report.UpdatedAt,
	}, nil
}

func fromRow(row *reportRow) (*model.ClinicalReport, error) {
	report := &model.ClinicalReport{
		ID: row.ID,
		Metadata: model.ReportMetadata{
			SessionID:   row.SessionID,
			PatientID:   row.PatientID,
			Department:  row.Department,
			Triage:      model.TriageLevel(row.Triage),
			GeneratedAt: row.GeneratedAt,
			Version:     row.Version,
			SourceIDs:   []string(row.SourceIDs),
		},
		ReviewStatus:  model.ReviewStatus(row.ReviewStatus),
		Prescription:  row.Prescription,
		ReviewerNotes: row.ReviewerNotes,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}

	if err := json.Unmarshal(row.Subjective, &report.Subjective); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subjective section: %w", err)
	}
	if err := json.Unmarshal(row.Objective, &report.Objective); err != nil {
		return nil, fmt.Errorf("failed to unmarshal objective section: %w", err)
	}
	if err := json.Unmarshal(row.Assessment, &report.Assessment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment section: %w", err)
	}
	if err := json.Unmarshal(row.Plan, &report.Plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan section: %w", err)
	}

	return report, nil
}
