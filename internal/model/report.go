package model

import (
	"time"

	"github.com/google/uuid"
)

type TriageLevel string

// Triage levels, totally ordered by severity.
const (
	TriageEmergency TriageLevel = "emergency"
	TriageUrgent    TriageLevel = "urgent"
	TriageStandard  TriageLevel = "standard"
	TriageRoutine   TriageLevel = "routine"
)

var triageRank = map[TriageLevel]int{
	TriageEmergency: 3,
	TriageUrgent:    2,
	TriageStandard:  1,
	TriageRoutine:   0,
}

// MoreSevere reports whether l outranks other.
func (l TriageLevel) MoreSevere(other TriageLevel) bool {
	return triageRank[l] > triageRank[other]
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewInReview ReviewStatus = "in_review"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Terminal reports whether no further review transitions are allowed.
func (s ReviewStatus) Terminal() bool {
	return s == ReviewApproved || s == ReviewRejected
}

type SubjectiveSection struct {
	ChiefComplaint   string   `json:"chief_complaint"`
	HistoryOfIllness string   `json:"history_of_illness"`
	ReportedSymptoms []string `json:"reported_symptoms"`
	Duration         string   `json:"duration"`
}

type ObjectiveSection struct {
	ObservedIndicators []string `json:"observed_indicators"`
	Severity           string   `json:"severity"`
	RedFlags           []string `json:"red_flags"`
}

type AssessmentSection struct {
	PrimaryDiagnosis       string   `json:"primary_diagnosis"`
	DifferentialDiagnoses  []string `json:"differential_diagnoses"`
	Confidence             float64  `json:"confidence"`
	ClinicalRationale      string   `json:"clinical_rationale"`
	RuledOutConditions     []string `json:"ruled_out_conditions"`
	IdentifiedSymptomCount int      `json:"identified_symptom_count"`
}

type PlanSection struct {
	Recommendations []string `json:"recommendations"`
	SuggestedTests  []string `json:"suggested_tests"`
	Referral        string   `json:"referral"`
	Urgency         string   `json:"urgency"`
	FollowUp        string   `json:"follow_up"`
}

// ReportMetadata is the persistence key material plus routing labels. One
// report exists per session.
type ReportMetadata struct {
	SessionID   uuid.UUID   `json:"session_id" db:"session_id"`
	PatientID   uuid.UUID   `json:"patient_id" db:"patient_id"`
	Department  string      `json:"department" db:"department"`
	Triage      TriageLevel `json:"triage" db:"triage"`
	GeneratedAt time.Time   `json:"generated_at" db:"generated_at"`
	Version     string      `json:"version" db:"version"`
	SourceIDs   []string    `json:"source_ids"`
}

// ClinicalReport is the durable four-section record other parts of the system
// read. The shape is a stable JSON contract.
type ClinicalReport struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	Subjective   SubjectiveSection `json:"subjective"`
	Objective    ObjectiveSection  `json:"objective"`
	Assessment   AssessmentSection `json:"assessment"`
	Plan         PlanSection       `json:"plan"`
	Metadata     ReportMetadata    `json:"metadata"`
	ReviewStatus ReviewStatus      `json:"review_status" db:"review_status"`
	// Reviewer-authored fields, persisted only on approval.
	Prescription  string    `json:"prescription,omitempty" db:"prescription"`
	ReviewerNotes string    `json:"reviewer_notes,omitempty" db:"reviewer_notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
