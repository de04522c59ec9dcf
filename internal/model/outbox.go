package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Report lifecycle event types published through the outbox.
const (
	EventReportGenerated   = "REPORT_GENERATED"
	EventReportReviewed    = "REPORT_REVIEWED"
	EventReportRegenerated = "REPORT_REGENERATED"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
}

// ReportEventPayload is the payload shape for report lifecycle events.
type ReportEventPayload struct {
	ReportID  uuid.UUID   `json:"report_id"`
	SessionID uuid.UUID   `json:"session_id"`
	PatientID uuid.UUID   `json:"patient_id"`
	Triage    TriageLevel `json:"triage"`
	Status    string      `json:"status,omitempty"`
}
