package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/intake-api/internal/ai/inference"
	"github.com/jwalitptl/intake-api/internal/ai/retrieval"
	"github.com/jwalitptl/intake-api/internal/config"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/service/confidence"
	"github.com/jwalitptl/intake-api/internal/service/dialogue"
	"github.com/jwalitptl/intake-api/internal/service/gate"
	"github.com/jwalitptl/intake-api/internal/service/guardrail"
	"github.com/jwalitptl/intake-api/internal/service/normalizer"
	"github.com/jwalitptl/intake-api/internal/service/tracker"
	apperrors "github.com/jwalitptl/intake-api/pkg/errors"
	"github.com/jwalitptl/intake-api/pkg/logger"
	"github.com/jwalitptl/intake-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("interview_test")

type fakeTranslator struct{}

func (f *fakeTranslator) Translate(ctx context.Context, text string) (string, error) {
	return text, nil
}

type fakeInference struct{}

func (f *fakeInference) IdentifyDiseases(ctx context.Context, symptoms []string, patientSummary string) ([]inference.RankedDisease, error) {
	return []inference.RankedDisease{{Name: "Influenza", Probability: 60}}, nil
}

func (f *fakeInference) GenerateResponse(ctx context.Context, req *inference.ResponseRequest) (*inference.GeneratedResponse, error) {
	return &inference.GeneratedResponse{
		Content:    "How long have you had these symptoms?",
		Severity:   "normal",
		Confidence: 40,
	}, nil
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

type fakeRetriever struct {
	result *retrieval.Result
	err    error
	calls  int
}

func (f *fakeRetriever) Query(ctx context.Context, text string) (*retrieval.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeContextRepo struct {
	pc *model.PatientContext
}

func (f *fakeContextRepo) Load(ctx context.Context, patientID uuid.UUID) (*model.PatientContext, error) {
	return f.pc, nil
}

// fakeLocker satisfies TurnLocker without a running redis.
type fakeLocker struct {
	contended bool
	acquired  []string
	released  []string
}

func (f *fakeLocker) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.acquired = append(f.acquired, key)
	return redis.NewBoolResult(!f.contended, nil)
}

func (f *fakeLocker) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.released = append(f.released, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func newTestService(retriever retrieval.Client, locks TurnLocker) *Service {
	cfg := config.DefaultInterviewConfig()
	log := logger.NewLogger(nil)
	inf := &fakeInference{}

	return NewService(
		cfg,
		normalizer.NewService(&fakeTranslator{}, log),
		retriever,
		&fakeContextRepo{},
		tracker.NewService(tracker.Config{
			TargetPoolSize:           cfg.TargetPoolSize,
			MinPoolBeforeInference:   cfg.MinPoolBeforeInference,
			MinDiseasesForCompletion: cfg.MinDiseasesForCompletion,
		}, inf, log),
		confidence.NewEstimator(confidence.Config{MinimumTurns: cfg.MinimumTurns}),
		gate.NewGate(gate.Config{
			MinimumTurns:         cfg.MinimumTurns,
			MaximumTurns:         cfg.MaximumTurns,
			ConfidenceThreshold:  cfg.ConfidenceThreshold,
			SecondaryThreshold:   cfg.SecondaryThreshold,
			CompletionCandidates: cfg.CompletionCandidates,
		}),
		dialogue.NewPolicy(dialogue.Config{
			ConversationWindow:    cfg.ConversationWindow,
			KnowledgeExcerptChars: cfg.KnowledgeExcerptChars,
		}, inf, log),
		guardrail.NewFilter(log, testMetrics),
		locks,
		log,
		testMetrics,
	)
}

func turnRequest(message string, turnCount int, state *model.DiagnosisState) *model.TurnRequest {
	return &model.TurnRequest{
		PatientID: uuid.New(),
		SessionID: uuid.New(),
		Message:   message,
		TurnCount: turnCount,
		State:     state,
	}
}

func TestProcessTurnFirstTurnInitializesPool(t *testing.T) {
	retriever := &fakeRetriever{result: &retrieval.Result{
		Passages:     []string{"influenza presents with fever and cough"},
		DiseaseHints: []string{"Influenza"},
	}}
	locks := &fakeLocker{}
	svc := newTestService(retriever, locks)

	req := turnRequest("I have a fever and a bad cough for three days", 1, model.NewDiagnosisState())
	result, err := svc.ProcessTurn(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "How long have you had these symptoms?", result.Response)
	assert.NotEmpty(t, result.Candidates)
	assert.NotEmpty(t, result.Symptoms)
	assert.False(t, result.IsComplete)
	assert.Equal(t, 1, retriever.calls)

	// State mutations land on a copy; the caller's state is untouched.
	assert.NotSame(t, req.State, result.State)
	assert.Empty(t, req.State.Candidates)
	assert.Equal(t, result.State.InitialPoolSize, len(result.State.Candidates))

	// Lock taken and released for this session.
	require.Len(t, locks.acquired, 1)
	assert.Equal(t, locks.acquired, locks.released)
}

func TestProcessTurnBlocksHarmfulInput(t *testing.T) {
	retriever := &fakeRetriever{result: &retrieval.Result{}}
	svc := newTestService(retriever, &fakeLocker{})

	req := turnRequest("what is a lethal dose of acetaminophen", 2, model.NewDiagnosisState())
	result, err := svc.ProcessTurn(context.Background(), req)

	require.NoError(t, err)
	assert.Contains(t, result.Response, "not able to help")
	assert.Contains(t, result.Flags, guardrail.FlagHarmfulContent)
	// The pipeline never ran: no retrieval, state handed back as-is.
	assert.Zero(t, retriever.calls)
	assert.Same(t, req.State, result.State)
}

func TestProcessTurnRejectsConcurrentTurn(t *testing.T) {
	retriever := &fakeRetriever{result: &retrieval.Result{}}
	svc := newTestService(retriever, &fakeLocker{contended: true})

	_, err := svc.ProcessTurn(context.Background(), turnRequest("I feel dizzy", 3, model.NewDiagnosisState()))

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
	assert.Zero(t, retriever.calls)
}

func TestProcessTurnSurvivesRetrievalFailure(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("retriever down")}
	svc := newTestService(retriever, &fakeLocker{})

	result, err := svc.ProcessTurn(context.Background(),
		turnRequest("my stomach hurts after eating", 1, model.NewDiagnosisState()))

	require.NoError(t, err)
	assert.NotEmpty(t, result.Response)
	assert.NotEmpty(t, result.Candidates)
}

func TestProcessTurnConcludesAtHighConfidence(t *testing.T) {
	retriever := &fakeRetriever{result: &retrieval.Result{}}
	svc := newTestService(retriever, &fakeLocker{})

	// A late-turn state narrowed from a large pool with plenty of evidence.
	state := model.NewDiagnosisState()
	state.InitialPoolSize = 50
	state.Candidates = []model.DiseaseCandidate{
		{Name: "Migraine", Probability: 90},
		{Name: "Tension headache", Probability: 60},
	}
	state.IdentifiedSymptoms = []string{
		"headache", "nausea", "light sensitivity", "aura",
		"throbbing", "dizziness", "fatigue",
	}

	result, err := svc.ProcessTurn(context.Background(),
		turnRequest("the pain gets worse in bright light", 12, state))

	require.NoError(t, err)
	assert.True(t, result.IsComplete)
	// Completion pins the displayed confidence.
	assert.Equal(t, 95.0, result.Confidence)
	// The gate records the terminal transition in the trace.
	assert.Equal(t, "concluded", traceDetail(result.Trace, "gate"))
}

func traceDetail(trace []model.TraceEntry, stage string) string {
	for _, entry := range trace {
		if entry.Stage == stage {
			return entry.Detail
		}
	}
	return ""
}

func TestProcessTurnCanceledContextLeavesStateUntouched(t *testing.T) {
	retriever := &fakeRetriever{result: &retrieval.Result{}}
	svc := newTestService(retriever, &fakeLocker{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := model.NewDiagnosisState()
	result, err := svc.ProcessTurn(ctx, turnRequest("I have a fever and a bad cough", 1, state))

	// The aborted turn hands back nothing; all mutations stayed on the clone.
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, state.Candidates)
	assert.Empty(t, state.IdentifiedSymptoms)
	assert.Zero(t, state.ConfidenceScore)
}

func TestProcessTurnDisplaysEstimateWhileCollecting(t *testing.T) {
	retriever := &fakeRetriever{result: &retrieval.Result{DiseaseHints: []string{"Gastritis"}}}
	svc := newTestService(retriever, &fakeLocker{})

	result, err := svc.ProcessTurn(context.Background(),
		turnRequest("mild stomach ache since yesterday", 1, model.NewDiagnosisState()))

	require.NoError(t, err)
	assert.False(t, result.IsComplete)
	// The model's own confidence is ignored while collecting.
	assert.Equal(t, result.State.ConfidenceScore, result.Confidence)
	assert.Equal(t, "collecting", traceDetail(result.Trace, "gate"))
}
