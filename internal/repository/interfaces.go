package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/intake-api/internal/model"
)

// ReportRepository owns the durable ClinicalReport records. Upsert is keyed by
// session id: one report per session.
type ReportRepository interface {
	// WithTx runs fn in one transaction. The conclude path uses it to keep the
	// row lock taken by UpsertTx held across screening and the triage write,
	// so a concurrent regeneration cannot interleave.
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	UpsertTx(ctx context.Context, tx *sqlx.Tx, report *model.ClinicalReport) error
	Get(ctx context.Context, id uuid.UUID) (*model.ClinicalReport, error)
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.ClinicalReport, error)
	// UpdateTriageTx overwrites the priority label and red-flag list in place.
	// Callers must already hold the row lock on tx.
	UpdateTriageTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, triage model.TriageLevel, redFlags []string) error
	// WithReportLock runs fn while holding a row lock on the report, keeping
	// conclude/regenerate single-writer per report.
	WithReportLock(ctx context.Context, id uuid.UUID, fn func(tx *sqlx.Tx, report *model.ClinicalReport) error) error
	UpdateSectionsTx(ctx context.Context, tx *sqlx.Tx, report *model.ClinicalReport) error
	UpdateReviewTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.ReviewStatus, prescription, notes string) error
}

type SessionRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Create(ctx context.Context, session *model.Session) error
	// MarkCompleted flips the session to completed; callers must only invoke
	// it after report persistence succeeded.
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	IncrementTurn(ctx context.Context, id uuid.UUID) error
}

// PatientContextRepository loads the read-only medical history facts.
type PatientContextRepository interface {
	Load(ctx context.Context, patientID uuid.UUID) (*model.PatientContext, error)
}

type ReviewerRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.Reviewer, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Reviewer, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
}
