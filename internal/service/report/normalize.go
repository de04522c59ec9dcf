package report

import (
	"strings"

	"github.com/jwalitptl/intake-api/internal/model"
)

// Severity values accepted into the typed enum.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityModerate = "moderate"
	SeverityNormal   = "normal"
)

// severitySynonyms normalizes the free-text severity/urgency values returned
// by the generation call before they are accepted into the typed enum.
var severitySynonyms = map[string]string{
	"critical":  SeverityCritical,
	"severe":    SeverityCritical,
	"emergency": SeverityCritical,
	"urgent":    SeverityHigh,
	"high":      SeverityHigh,
	"serious":   SeverityHigh,
	"moderate":  SeverityModerate,
	"medium":    SeverityModerate,
	"mild":      SeverityNormal,
	"low":       SeverityNormal,
	"none":      SeverityNormal,
	"normal":    SeverityNormal,
	"minimal":   SeverityNormal,
}

// NormalizeSeverity maps free-text severity onto the enum, defaulting unknown
// values to moderate.
func NormalizeSeverity(raw string) string {
	if normalized, ok := severitySynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return normalized
	}
	return SeverityModerate
}

// emergencyKeywords force the provisional emergency label when present in
// severity or symptom text.
var emergencyKeywords = []string{
	"chest pain", "difficulty breathing", "shortness of breath", "stroke",
	"unconscious", "severe bleeding", "anaphylaxis", "heart attack",
	"suicidal", "seizure",
}

// ProvisionalTriage computes the documentation generator's triage label from
// severity plus symptom text and detected red flags. The safety screener
// overwrites it with the authoritative label afterward.
func ProvisionalTriage(severity string, symptomText string, redFlags []string) model.TriageLevel {
	lower := strings.ToLower(symptomText)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return model.TriageEmergency
		}
	}
	if len(redFlags) > 0 {
		return model.TriageEmergency
	}

	switch NormalizeSeverity(severity) {
	case SeverityCritical, SeverityHigh:
		return model.TriageUrgent
	case SeverityModerate:
		return model.TriageStandard
	default:
		return model.TriageRoutine
	}
}
