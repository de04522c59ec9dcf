package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/intake-api/internal/ai/inference"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/pkg/logger"
)

type fakeInference struct {
	resp    *inference.GeneratedResponse
	err     error
	lastReq *inference.ResponseRequest
}

func (f *fakeInference) IdentifyDiseases(ctx context.Context, symptoms []string, patientSummary string) ([]inference.RankedDisease, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeInference) GenerateResponse(ctx context.Context, req *inference.ResponseRequest) (*inference.GeneratedResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeInference) GenerateReport(ctx context.Context, req *inference.ReportRequest) (*inference.GeneratedReport, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeInference) RegenerateReport(ctx context.Context, req *inference.RegenerateRequest) (*inference.GeneratedReport, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeInference) SafetyCheck(ctx context.Context, text string) (*inference.SafetyFinding, error) {
	return nil, errors.New("not implemented")
}

func newPolicy(inf inference.Client) *Policy {
	return NewPolicy(Config{ConversationWindow: 12, KnowledgeExcerptChars: 2000}, inf, logger.NewLogger(nil))
}

func stateWithCandidates(names ...string) *model.DiagnosisState {
	state := model.NewDiagnosisState()
	for i, name := range names {
		state.Candidates = append(state.Candidates, model.DiseaseCandidate{
			Name:        name,
			Probability: float64(90 - i*10),
		})
	}
	return state
}

func TestGeneratePassesThroughModelResponse(t *testing.T) {
	inf := &fakeInference{resp: &inference.GeneratedResponse{
		Content:           "Does the pain get worse after meals?",
		TranslatedContent: "¿El dolor empeora después de comer?",
		Severity:          "normal",
		Confidence:        42,
	}}
	p := newPolicy(inf)

	got := p.Generate(context.Background(), nil, stateWithCandidates("GERD"), "", "", "es", false)

	assert.Equal(t, "Does the pain get worse after meals?", got.Content)
	assert.Equal(t, "¿El dolor empeora después de comer?", got.TranslatedContent)
	assert.Equal(t, 42.0, got.Confidence)
	assert.False(t, got.Fallback)
}

func TestGeneratePinsConfidenceWhenReady(t *testing.T) {
	inf := &fakeInference{resp: &inference.GeneratedResponse{
		Content:    "Based on our conversation, the leading possibility is GERD.",
		Confidence: 61,
	}}
	p := newPolicy(inf)

	got := p.Generate(context.Background(), nil, stateWithCandidates("GERD"), "", "", "en", true)

	assert.Equal(t, 95.0, got.Confidence)
	assert.True(t, got.IsConfident)
}

func TestGenerateFallbackWhileCollecting(t *testing.T) {
	inf := &fakeInference{err: errors.New("model unavailable")}
	p := newPolicy(inf)

	got := p.Generate(context.Background(), nil, stateWithCandidates("GERD"), "", "", "en", false)

	assert.True(t, got.Fallback)
	assert.Equal(t, fallbackPrompt, got.Content)
	assert.Equal(t, "normal", got.Severity)
}

func TestGenerateFallbackOnEmptyContent(t *testing.T) {
	inf := &fakeInference{resp: &inference.GeneratedResponse{Content: "   "}}
	p := newPolicy(inf)

	got := p.Generate(context.Background(), nil, stateWithCandidates("GERD"), "", "", "en", false)
	assert.True(t, got.Fallback)
}

func TestGenerateFallbackWhenReadyNamesTopCandidate(t *testing.T) {
	inf := &fakeInference{err: errors.New("model unavailable")}
	p := newPolicy(inf)

	got := p.Generate(context.Background(), nil, stateWithCandidates("Migraine", "Tension headache"), "", "", "en", true)

	assert.True(t, got.Fallback)
	assert.True(t, got.IsConfident)
	assert.Equal(t, 95.0, got.Confidence)
	assert.Contains(t, got.Content, "Migraine")
}

func TestGenerateBoundsWindowAndKnowledge(t *testing.T) {
	inf := &fakeInference{resp: &inference.GeneratedResponse{Content: "ok"}}
	p := newPolicy(inf)

	history := make([]model.ChatMessage, 30)
	for i := range history {
		history[i] = model.ChatMessage{Role: model.RolePatient, Text: "turn"}
	}
	knowledge := strings.Repeat("k", 5000)

	p.Generate(context.Background(), history, stateWithCandidates("A"), "", knowledge, "en", false)

	require.NotNil(t, inf.lastReq)
	assert.Len(t, inf.lastReq.Window, 12)
	assert.Len(t, inf.lastReq.KnowledgeExcerpt, 2000)
}

func TestGenerateKeepsKnowledgeExcerptValidUTF8(t *testing.T) {
	inf := &fakeInference{resp: &inference.GeneratedResponse{Content: "ok"}}
	p := newPolicy(inf)

	// Three-byte runes guarantee the 2000-byte limit lands mid-rune.
	knowledge := strings.Repeat("頭", 1000)

	p.Generate(context.Background(), nil, stateWithCandidates("A"), "", knowledge, "ja", false)

	require.NotNil(t, inf.lastReq)
	assert.LessOrEqual(t, len(inf.lastReq.KnowledgeExcerpt), 2000)
	assert.True(t, utf8.ValidString(inf.lastReq.KnowledgeExcerpt))
}

func TestGenerateSendsAtMostFiveCandidates(t *testing.T) {
	inf := &fakeInference{resp: &inference.GeneratedResponse{Content: "ok"}}
	p := newPolicy(inf)

	state := stateWithCandidates("A", "B", "C", "D", "E", "F", "G")
	p.Generate(context.Background(), nil, state, "", "", "en", false)

	require.NotNil(t, inf.lastReq)
	assert.Len(t, inf.lastReq.TopCandidates, 5)
	assert.Equal(t, "A", inf.lastReq.TopCandidates[0].Name)
}
