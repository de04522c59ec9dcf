package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/intake-api/internal/model"
)

func TestNormalizeSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, NormalizeSeverity("severe"))
	assert.Equal(t, SeverityCritical, NormalizeSeverity("Emergency"))
	assert.Equal(t, SeverityHigh, NormalizeSeverity("urgent"))
	assert.Equal(t, SeverityModerate, NormalizeSeverity("  Medium "))
	assert.Equal(t, SeverityNormal, NormalizeSeverity("mild"))
	assert.Equal(t, SeverityNormal, NormalizeSeverity("none"))
	// Unknown values land on moderate, never on an extreme.
	assert.Equal(t, SeverityModerate, NormalizeSeverity("banana"))
	assert.Equal(t, SeverityModerate, NormalizeSeverity(""))
}

func TestProvisionalTriageEmergencyKeywordWins(t *testing.T) {
	got := ProvisionalTriage("mild", "occasional chest pain at night", nil)
	assert.Equal(t, model.TriageEmergency, got)
}

func TestProvisionalTriageRedFlagsForceEmergency(t *testing.T) {
	got := ProvisionalTriage("mild", "sore throat", []string{"possible sepsis"})
	assert.Equal(t, model.TriageEmergency, got)
}

func TestProvisionalTriageFromSeverity(t *testing.T) {
	assert.Equal(t, model.TriageUrgent, ProvisionalTriage("critical", "leg pain", nil))
	assert.Equal(t, model.TriageUrgent, ProvisionalTriage("high", "leg pain", nil))
	assert.Equal(t, model.TriageStandard, ProvisionalTriage("moderate", "leg pain", nil))
	assert.Equal(t, model.TriageRoutine, ProvisionalTriage("mild", "leg pain", nil))
	// Unknown severity normalizes to moderate and lands on standard.
	assert.Equal(t, model.TriageStandard, ProvisionalTriage("??", "leg pain", nil))
}

func TestAssignDepartment(t *testing.T) {
	assert.Equal(t, "Cardiology", AssignDepartment([]string{"chest pain"}, nil))
	assert.Equal(t, "Pulmonology", AssignDepartment([]string{"cough"}, nil))
	assert.Equal(t, "Gastroenterology", AssignDepartment(nil, []string{"GERD"}))
	assert.Equal(t, "Neurology", AssignDepartment([]string{"dizziness"}, nil))
	assert.Equal(t, "Psychiatry", AssignDepartment([]string{"panic"}, nil))
	assert.Equal(t, defaultDepartment, AssignDepartment([]string{"fatigue"}, []string{"Anemia"}))
	assert.Equal(t, defaultDepartment, AssignDepartment(nil, nil))
}

func TestAssignDepartmentFirstMatchWins(t *testing.T) {
	// Cardiology precedes pulmonology in the policy table.
	got := AssignDepartment([]string{"chest pain", "cough"}, nil)
	assert.Equal(t, "Cardiology", got)
}
