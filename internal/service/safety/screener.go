package safety

import (
	"context"
	"strings"

	"github.com/jwalitptl/intake-api/internal/ai/inference"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/pkg/logger"
)

// Result is the authoritative screening outcome for one report.
type Result struct {
	Triage                     model.TriageLevel
	RedFlags                   []string
	UrgencyScore               float64
	RequiresImmediateAttention bool
}

// Screener layers a rule-pattern scan with a secondary model-based check over
// a generated report.
type Screener struct {
	inference inference.Client
	logger    *logger.Logger
}

func NewScreener(inf inference.Client, log *logger.Logger) *Screener {
	return &Screener{inference: inf, logger: log}
}

// Screen evaluates the report and returns the final triage label plus the
// red-flag list. All rule matches are collected, not just the first.
func (s *Screener) Screen(ctx context.Context, report *model.ClinicalReport) (model.TriageLevel, []string) {
	result := s.Evaluate(ctx, report)
	return result.Triage, result.RedFlags
}

// Evaluate exposes the full screening result.
func (s *Screener) Evaluate(ctx context.Context, report *model.ClinicalReport) *Result {
	text := screeningText(report)

	var (
		redFlags      []string
		urgency       float64
		criticalMatch bool
		urgentMatch   bool
	)

	scan := func(rules []rule) {
		for _, r := range rules {
			if r.pattern.MatchString(text) {
				redFlags = append(redFlags, r.flag)
				if r.score > urgency {
					urgency = r.score
				}
				switch r.tier {
				case tierCritical:
					criticalMatch = true
				case tierUrgent:
					urgentMatch = true
				}
			}
		}
	}
	scan(criticalRules)
	scan(urgentRules)

	// Secondary model check corroborates rule findings; it runs when the
	// rules matched anything or the running score reached the bound, and its
	// findings are unioned with the rule layer's.
	if len(redFlags) > 0 || urgency >= modelLayerThreshold {
		if finding, err := s.inference.SafetyCheck(ctx, text); err != nil {
			s.logger.WithStage("safety").Warn("model safety check failed, keeping rule-layer findings", "error", err)
		} else {
			redFlags = unionFlags(redFlags, finding.RedFlags)
			if finding.UrgencyScore > urgency {
				urgency = finding.UrgencyScore
			}
		}
	}

	triage := model.TriageRoutine
	switch {
	case urgency >= emergencyThreshold || criticalMatch:
		triage = model.TriageEmergency
	case urgency >= urgentThreshold || urgentMatch:
		triage = model.TriageUrgent
	case urgency >= standardThreshold:
		triage = model.TriageStandard
	}

	return &Result{
		Triage:                     triage,
		RedFlags:                   redFlags,
		UrgencyScore:               urgency,
		RequiresImmediateAttention: triage == model.TriageEmergency,
	}
}

// screeningText concatenates the report fields the rule table runs against.
func screeningText(report *model.ClinicalReport) string {
	parts := []string{
		report.Subjective.ChiefComplaint,
		strings.Join(report.Subjective.ReportedSymptoms, " "),
		report.Subjective.HistoryOfIllness,
		strings.Join(report.Objective.ObservedIndicators, " "),
		report.Assessment.PrimaryDiagnosis,
		strings.Join(report.Assessment.DifferentialDiagnoses, " "),
		report.Assessment.ClinicalRationale,
	}
	return strings.Join(parts, "\n")
}

func unionFlags(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, f := range existing {
		seen[strings.ToLower(f)] = true
	}
	for _, f := range incoming {
		if f != "" && !seen[strings.ToLower(f)] {
			seen[strings.ToLower(f)] = true
			existing = append(existing, f)
		}
	}
	return existing
}
