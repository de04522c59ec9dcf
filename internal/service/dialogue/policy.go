package dialogue

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jwalitptl/intake-api/internal/ai/inference"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/pkg/logger"
)

const (
	// Displayed confidence is pinned on conclusion rather than exposing the
	// raw estimator value.
	pinnedConfidence = 95.0

	fallbackPrompt = "Could you please describe your symptoms in more detail?"
)

type Config struct {
	ConversationWindow    int
	KnowledgeExcerptChars int
}

// Utterance is one generated assistant turn.
type Utterance struct {
	Content           string
	TranslatedContent string
	Severity          string
	Confidence        float64
	Symptoms          []string
	IsConfident       bool
	Fallback          bool
}

// Policy generates the next bilingual utterance: a narrowing question while
// collecting, a concluding summary once the gate signals ready.
type Policy struct {
	cfg       Config
	inference inference.Client
	logger    *logger.Logger
}

func NewPolicy(cfg Config, inf inference.Client, log *logger.Logger) *Policy {
	return &Policy{cfg: cfg, inference: inf, logger: log}
}

// Generate produces the turn's utterance. Malformed or failed generation
// degrades to a fixed safe prompt; the turn never fails here.
func (p *Policy) Generate(ctx context.Context, history []model.ChatMessage, state *model.DiagnosisState, patientSummary, knowledge, patientLanguage string, ready bool) *Utterance {
	req := &inference.ResponseRequest{
		Window:           model.RecentWindow(history, p.cfg.ConversationWindow),
		KnowledgeExcerpt: truncate(knowledge, p.cfg.KnowledgeExcerptChars),
		PatientSummary:   patientSummary,
		TopCandidates:    topCandidates(state, 5),
		PendingQuestions: state.PendingQuestions,
		PatientLanguage:  patientLanguage,
		Ready:            ready,
	}

	resp, err := p.inference.GenerateResponse(ctx, req)
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		p.logger.WithStage("dialogue").Warn("response generation failed, using safe fallback",
			"error", err)
		return p.fallback(state, ready)
	}

	utterance := &Utterance{
		Content:           resp.Content,
		TranslatedContent: resp.TranslatedContent,
		Severity:          resp.Severity,
		Confidence:        resp.Confidence,
		Symptoms:          resp.Symptoms,
		IsConfident:       resp.IsConfident,
	}
	if ready {
		utterance.IsConfident = true
		utterance.Confidence = pinnedConfidence
	}
	return utterance
}

func (p *Policy) fallback(state *model.DiagnosisState, ready bool) *Utterance {
	if !ready {
		return &Utterance{
			Content:           fallbackPrompt,
			TranslatedContent: fallbackPrompt,
			Severity:          "normal",
			Fallback:          true,
		}
	}

	leading := "your reported symptoms"
	if top := state.TopCandidate(); top != nil {
		leading = top.Name
	}
	content := fmt.Sprintf(
		"Thank you for answering my questions. Based on our conversation, the leading possibility is %s. A clinical report will now be prepared for review by a physician.",
		leading,
	)
	return &Utterance{
		Content:           content,
		TranslatedContent: content,
		Severity:          "normal",
		Confidence:        pinnedConfidence,
		IsConfident:       true,
		Fallback:          true,
	}
}

func topCandidates(state *model.DiagnosisState, n int) []model.DiseaseCandidate {
	if len(state.Candidates) <= n {
		return state.Candidates
	}
	return state.Candidates[:n]
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
