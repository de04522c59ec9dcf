package model

import (
	"time"

	"github.com/google/uuid"
)

// TurnRequest carries one patient turn into the pipeline. DiagnosisState is
// owned by the caller; the pipeline returns an updated copy.
type TurnRequest struct {
	PatientID uuid.UUID       `json:"patient_id"`
	SessionID uuid.UUID       `json:"session_id"`
	Message   string          `json:"message"`
	History   []ChatMessage   `json:"history"`
	State     *DiagnosisState `json:"diagnosis_state"`
	TurnCount int             `json:"turn_count"`
}

// TraceEntry records one pipeline stage for audit.
type TraceEntry struct {
	Stage    string        `json:"stage"`
	Detail   string        `json:"detail,omitempty"`
	Fallback bool          `json:"fallback,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ms"`
}

// TurnResult is the full outcome of one processed turn.
type TurnResult struct {
	Response           string             `json:"response"`
	TranslatedResponse string             `json:"translated_response,omitempty"`
	Severity           string             `json:"severity"`
	Confidence         float64            `json:"confidence"`
	Symptoms           []string           `json:"symptoms"`
	Candidates         []DiseaseCandidate `json:"candidates"`
	IsComplete         bool               `json:"is_complete"`
	State              *DiagnosisState    `json:"diagnosis_state"`
	Modified           bool               `json:"guardrail_modified"`
	Flags              []string           `json:"guardrail_flags,omitempty"`
	Trace              []TraceEntry       `json:"agent_trace"`
}

// ConcludeResult is returned by the report-generation interface.
type ConcludeResult struct {
	Report     *ClinicalReport `json:"report"`
	Department string          `json:"department"`
	Triage     TriageLevel     `json:"triage"`
	ReportID   uuid.UUID       `json:"report_id"`
}
