package guardrail

import (
	"strings"

	"github.com/jwalitptl/intake-api/pkg/logger"
	"github.com/jwalitptl/intake-api/pkg/metrics"
)

const (
	FlagSelfHarm       = "self_harm_concern"
	FlagHarmfulContent = "harmful_content"
	FlagDirective      = "medical_directive_removed"
	FlagAbsoluteClaim  = "absolute_claim_softened"
	FlagDisclaimer     = "disclaimer_added"

	confidenceCeiling = 95.0
)

// IngressResult is the outcome of screening raw patient text.
type IngressResult struct {
	Allowed  bool
	Flags    []string
	Refusal  string
	// EmergencyDisclaimer forces the emergency disclaimer on this turn's
	// response even when the text itself would not trigger it.
	EmergencyDisclaimer bool
}

// EgressResult is the outcome of screening generated text. Modified must be
// observable by the caller for logging and audit, not just the rewritten text.
type EgressResult struct {
	Text     string
	Modified bool
	Flags    []string
}

// Filter gates patient input and generated output against prohibited content
// and over-confident claims.
type Filter struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewFilter(log *logger.Logger, m *metrics.Metrics) *Filter {
	return &Filter{logger: log, metrics: m}
}

// ScreenInput applies the ingress rules. Harmful-content matches
// short-circuit the turn with a fixed refusal; self-harm ideation is flagged
// but never blocked.
func (f *Filter) ScreenInput(text string) *IngressResult {
	for _, p := range harmfulPatterns {
		if p.MatchString(text) {
			f.metrics.GuardrailBlocks.Inc()
			f.logger.WithStage("guardrail").Warn("input blocked by harmful-content rule")
			return &IngressResult{
				Allowed: false,
				Flags:   []string{FlagHarmfulContent},
				Refusal: refusalMessage,
			}
		}
	}

	result := &IngressResult{Allowed: true}
	for _, p := range selfHarmPatterns {
		if p.MatchString(text) {
			f.metrics.SelfHarmFlags.Inc()
			result.Flags = append(result.Flags, FlagSelfHarm)
			result.EmergencyDisclaimer = true
			break
		}
	}
	return result
}

// ScreenOutput applies the egress rules: directive redaction, absolute-claim
// softening, and disclaimer injection.
func (f *Filter) ScreenOutput(text string, forceEmergencyDisclaimer bool) *EgressResult {
	result := &EgressResult{Text: text}

	for _, p := range directivePatterns {
		if p.MatchString(result.Text) {
			result.Text = p.ReplaceAllString(result.Text, deferralPhrase)
			result.Modified = true
			result.Flags = appendFlag(result.Flags, FlagDirective)
		}
	}

	for _, claim := range absoluteClaims {
		if claim.pattern.MatchString(result.Text) {
			result.Text = claim.pattern.ReplaceAllString(result.Text, claim.replacement)
			result.Modified = true
			result.Flags = appendFlag(result.Flags, FlagAbsoluteClaim)
		}
	}

	needsEmergency := forceEmergencyDisclaimer || emergencyTerms.MatchString(result.Text)
	if needsEmergency && !strings.Contains(result.Text, emergencyDisclaimer) {
		result.Text = result.Text + "\n\n" + emergencyDisclaimer
		result.Modified = true
		result.Flags = appendFlag(result.Flags, FlagDisclaimer)
	}

	if diagnosisTerms.MatchString(result.Text) && !strings.Contains(result.Text, diagnosisDisclaimer) {
		result.Text = result.Text + "\n\n" + diagnosisDisclaimer
		result.Modified = true
		result.Flags = appendFlag(result.Flags, FlagDisclaimer)
	}

	if result.Modified {
		f.metrics.GuardrailModifications.Inc()
	}
	return result
}

// ClampConfidence normalizes fractional confidence values to the percentage
// scale and clamps to [0, 95].
func ClampConfidence(value float64) float64 {
	if value > 0 && value <= 1 {
		value *= 100
	}
	if value > confidenceCeiling {
		return confidenceCeiling
	}
	if value < 0 {
		return 0
	}
	return value
}

func appendFlag(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}
