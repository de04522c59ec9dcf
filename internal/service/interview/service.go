package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/intake-api/internal/ai/retrieval"
	"github.com/jwalitptl/intake-api/internal/config"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository"
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

const turnLockPrefix = "intake:turn:"

// TurnLocker is the subset of the redis client used for the per-session turn
// lock.
type TurnLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Service orchestrates one patient turn through the pipeline: normalize,
// fan out to retrieval and context loading, track candidates, estimate
// confidence, gate, generate, and filter.
type Service struct {
	cfg        config.InterviewConfig
	normalizer *normalizer.Service
	retriever  retrieval.Client
	contexts   repository.PatientContextRepository
	tracker    *tracker.Service
	estimator  *confidence.Estimator
	gate       *gate.Gate
	dialogue   *dialogue.Policy
	guardrail  *guardrail.Filter
	locks      TurnLocker
	cache      *gocache.Cache
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	cfg config.InterviewConfig,
	norm *normalizer.Service,
	retriever retrieval.Client,
	contexts repository.PatientContextRepository,
	trk *tracker.Service,
	est *confidence.Estimator,
	g *gate.Gate,
	policy *dialogue.Policy,
	filter *guardrail.Filter,
	locks TurnLocker,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		cfg:        cfg,
		normalizer: norm,
		retriever:  retriever,
		contexts:   contexts,
		tracker:    trk,
		estimator:  est,
		gate:       g,
		dialogue:   policy,
		guardrail:  filter,
		locks:      locks,
		cache:      gocache.New(30*time.Minute, 10*time.Minute),
		logger:     log,
		metrics:    m,
	}
}

// ProcessTurn runs one turn of the interview. DiagnosisState mutations are
// applied to a copy and only handed back on success, so an aborted turn
// leaves the caller's state untouched. At most one turn per session may be in
// flight; concurrent turns are rejected.
func (s *Service) ProcessTurn(ctx context.Context, req *model.TurnRequest) (*model.TurnResult, error) {
	timer := prometheus.NewTimer(s.metrics.TurnLatency)
	defer timer.ObserveDuration()
	defer s.metrics.TurnsProcessed.Inc()

	log := s.logger.WithSession(req.SessionID)

	release, err := s.acquireTurnLock(ctx, req.SessionID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	var trace []model.TraceEntry
	stage := func(name string, fallback bool, detail string, started time.Time) {
		trace = append(trace, model.TraceEntry{
			Stage:    name,
			Detail:   detail,
			Fallback: fallback,
			Elapsed:  time.Since(started),
		})
		if fallback {
			s.metrics.StageFallbacks.WithLabelValues(name).Inc()
		}
	}

	// Ingress guardrail short-circuits before any pipeline side effects.
	started := time.Now()
	ingress := s.guardrail.ScreenInput(req.Message)
	stage("guardrail_ingress", false, strings.Join(ingress.Flags, ","), started)
	if !ingress.Allowed {
		return &model.TurnResult{
			Response:   ingress.Refusal,
			Severity:   "normal",
			Confidence: 0,
			State:      req.State,
			Flags:      ingress.Flags,
			Trace:      trace,
		}, nil
	}

	started = time.Now()
	normalized := s.normalizer.Normalize(ctx, req.Message)
	stage("normalize", !normalized.Translated && normalized.Language == "unknown", normalized.Language, started)

	// Retrieval and patient-context loading are independent; fan out.
	started = time.Now()
	var (
		knowledge      *retrieval.Result
		patientContext *model.PatientContext
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		result, err := s.retriever.Query(groupCtx, normalized.Text)
		if err != nil {
			log.WithStage("retrieval").Warn("knowledge retrieval failed, continuing without passages", "error", err)
			knowledge = &retrieval.Result{}
			return nil
		}
		knowledge = result
		return nil
	})
	group.Go(func() error {
		pc, err := s.loadPatientContext(groupCtx, req.PatientID)
		if err != nil {
			log.WithStage("context").Warn("patient context load failed, continuing without history", "error", err)
			return nil
		}
		patientContext = pc
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, apperrors.Internal(err)
	}
	stage("fan_out", knowledge == nil || len(knowledge.Passages) == 0, "", started)

	// All candidate and confidence updates happen on a copy; the copy is only
	// swapped in at the end of the turn.
	state := req.State.Clone()
	patientSummary := patientContext.Summary()

	started = time.Now()
	if len(state.Candidates) == 0 {
		s.tracker.Initialize(ctx, state, normalized.Text, knowledge.DiseaseHints, patientSummary)
		stage("tracker_init", false, fmt.Sprintf("pool=%d", len(state.Candidates)), started)
	} else {
		s.tracker.Narrow(ctx, state, normalized.Text, req.TurnCount)
		stage("tracker_narrow", false, fmt.Sprintf("pool=%d", len(state.Candidates)), started)
	}
	s.metrics.CandidatePoolSize.Observe(float64(len(state.Candidates)))

	var topProbability float64
	if top := state.TopCandidate(); top != nil {
		topProbability = top.Probability
	}
	state.ConfidenceScore = s.estimator.Estimate(
		state.InitialPoolSize, len(state.Candidates),
		len(state.IdentifiedSymptoms), req.TurnCount, topProbability,
	)

	gateState := s.gate.Evaluate(gate.StateCollecting, req.TurnCount, len(state.Candidates), state.ConfidenceScore)
	ready := gateState == gate.StateReady

	started = time.Now()
	utterance := s.dialogue.Generate(ctx, req.History, state, patientSummary,
		strings.Join(knowledge.Passages, "\n"), normalized.Language, ready)
	stage("dialogue", utterance.Fallback, "", started)

	started = time.Now()
	egress := s.guardrail.ScreenOutput(utterance.Content, ingress.EmergencyDisclaimer)
	stage("guardrail_egress", false, strings.Join(egress.Flags, ","), started)

	// The terminal transition fires only after the concluding utterance has
	// been emitted and screened.
	started = time.Now()
	if ready {
		gateState = s.gate.Conclude(gateState)
		s.metrics.TurnsConcluded.Inc()
	}
	stage("gate", false, string(gateState), started)

	// A canceled request must not hand back partial state.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("turn aborted: %w", err)
	}

	displayed := utterance.Confidence
	if !ready {
		displayed = state.ConfidenceScore
	}

	return &model.TurnResult{
		Response:           egress.Text,
		TranslatedResponse: utterance.TranslatedContent,
		Severity:           utterance.Severity,
		Confidence:         guardrail.ClampConfidence(displayed),
		Symptoms:           state.IdentifiedSymptoms,
		Candidates:         state.Candidates,
		IsComplete:         ready,
		State:              state,
		Modified:           egress.Modified,
		Flags:              append(ingress.Flags, egress.Flags...),
		Trace:              trace,
	}, nil
}

func (s *Service) loadPatientContext(ctx context.Context, patientID uuid.UUID) (*model.PatientContext, error) {
	key := patientID.String()
	if cached, ok := s.cache.Get(key); ok {
		if pc, ok := cached.(*model.PatientContext); ok {
			return pc, nil
		}
	}

	pc, err := s.contexts.Load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if pc != nil {
		s.cache.Set(key, pc, gocache.DefaultExpiration)
	}
	return pc, nil
}

// acquireTurnLock enforces at-most-one in-flight turn per session.
func (s *Service) acquireTurnLock(ctx context.Context, sessionID string) (func(), error) {
	key := turnLockPrefix + sessionID
	ok, err := s.locks.SetNX(ctx, key, "1", s.cfg.TurnLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("a turn is already being processed for this session", nil)
	}
	return func() {
		if err := s.locks.Del(context.Background(), key).Err(); err != nil {
			s.logger.WithStage("lock").Warn("failed to release turn lock", "session_id", sessionID, "error", err)
		}
	}, nil
}
