package model

import (
	"time"

	"github.com/google/uuid"
)

type ReviewAction string

const (
	ActionApprove        ReviewAction = "approve"
	ActionReject         ReviewAction = "reject"
	ActionRequestChanges ReviewAction = "request_changes"
)

// ReviewRequest is one reviewer decision against a persisted report.
type ReviewRequest struct {
	ReportID     uuid.UUID    `json:"report_id"`
	ReviewerID   uuid.UUID    `json:"reviewer_id"`
	Action       ReviewAction `json:"action"`
	Feedback     string       `json:"feedback,omitempty"`
	Rating       int          `json:"rating,omitempty"`
	Prescription string       `json:"prescription,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

// ReviewOutcome reports what the review loop did.
type ReviewOutcome struct {
	FinalStatus   ReviewStatus    `json:"final_status"`
	Regenerated   bool            `json:"regenerated"`
	UpdatedReport *ClinicalReport `json:"updated_report,omitempty"`
}

// Reviewer is a human reviewer account.
type Reviewer struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
