package guardrail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/intake-api/pkg/logger"
	"github.com/jwalitptl/intake-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("guardrail_test")

func newFilter() *Filter {
	return NewFilter(logger.NewLogger(nil), testMetrics)
}

func TestScreenInputBlocksHarmfulContent(t *testing.T) {
	f := newFilter()

	result := f.ScreenInput("how do i kill myself quickly")
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Flags, FlagHarmfulContent)
	assert.NotEmpty(t, result.Refusal)
}

func TestScreenInputBlocksLethalDoseQueries(t *testing.T) {
	f := newFilter()

	result := f.ScreenInput("what is the lethal dose of paracetamol")
	assert.False(t, result.Allowed)
}

func TestScreenInputFlagsSelfHarmWithoutBlocking(t *testing.T) {
	f := newFilter()

	result := f.ScreenInput("I feel like there is no reason to live anymore")
	assert.True(t, result.Allowed)
	assert.Contains(t, result.Flags, FlagSelfHarm)
	assert.True(t, result.EmergencyDisclaimer)
}

func TestScreenInputPassesOrdinaryText(t *testing.T) {
	f := newFilter()

	result := f.ScreenInput("I've had a sore throat since Tuesday")
	assert.True(t, result.Allowed)
	assert.Empty(t, result.Flags)
	assert.False(t, result.EmergencyDisclaimer)
}

func TestScreenOutputRedactsDosageDirectives(t *testing.T) {
	f := newFilter()

	result := f.ScreenOutput("You should take 400 mg of ibuprofen twice daily.", false)
	assert.True(t, result.Modified)
	assert.Contains(t, result.Flags, FlagDirective)
	assert.NotContains(t, result.Text, "400 mg")
	assert.Contains(t, result.Text, deferralPhrase)
}

func TestScreenOutputRedactsStopMedicationAdvice(t *testing.T) {
	f := newFilter()

	result := f.ScreenOutput("I think you should stop taking your medication for now.", false)
	assert.True(t, result.Modified)
	assert.Contains(t, result.Flags, FlagDirective)
}

func TestScreenOutputSoftensAbsoluteClaims(t *testing.T) {
	f := newFilter()

	result := f.ScreenOutput("This is definitely influenza.", false)
	assert.True(t, result.Modified)
	assert.Contains(t, result.Flags, FlagAbsoluteClaim)
	assert.NotContains(t, strings.ToLower(result.Text), "definitely")
	assert.Contains(t, result.Text, "likely")
}

func TestScreenOutputAddsDiagnosisDisclaimer(t *testing.T) {
	f := newFilter()

	result := f.ScreenOutput("Your symptoms suggest a mild respiratory condition.", false)
	assert.True(t, result.Modified)
	assert.Contains(t, result.Flags, FlagDisclaimer)
	assert.Contains(t, result.Text, diagnosisDisclaimer)

	// Never duplicated on a second pass.
	again := f.ScreenOutput(result.Text, false)
	assert.Equal(t, 1, strings.Count(again.Text, diagnosisDisclaimer))
}

func TestScreenOutputAddsEmergencyDisclaimer(t *testing.T) {
	f := newFilter()

	result := f.ScreenOutput("Chest pain of this kind needs attention.", false)
	assert.Contains(t, result.Text, emergencyDisclaimer)
}

func TestScreenOutputForcedEmergencyDisclaimer(t *testing.T) {
	f := newFilter()

	// Benign text, but the ingress screen demanded the disclaimer.
	result := f.ScreenOutput("Thank you for telling me how you feel.", true)
	require.True(t, result.Modified)
	assert.Contains(t, result.Text, emergencyDisclaimer)
}

func TestScreenOutputLeavesCleanTextAlone(t *testing.T) {
	f := newFilter()

	text := "How long have you been feeling this way?"
	result := f.ScreenOutput(text, false)
	assert.False(t, result.Modified)
	assert.Equal(t, text, result.Text)
	assert.Empty(t, result.Flags)
}

func TestClampConfidence(t *testing.T) {
	// Fractional values are treated as ratios and rescaled.
	assert.Equal(t, 80.0, ClampConfidence(0.8))
	assert.Equal(t, 95.0, ClampConfidence(0.99))
	// Percentage values pass through, clamped to the ceiling.
	assert.Equal(t, 72.0, ClampConfidence(72))
	assert.Equal(t, 95.0, ClampConfidence(100))
	assert.Equal(t, 0.0, ClampConfidence(-5))
	assert.Equal(t, 0.0, ClampConfidence(0))
}
