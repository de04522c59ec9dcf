package tracker

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/intake-api/internal/ai/inference"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/pkg/logger"
)

// Probability adjustment constants. Hand-tuned product values preserved
// exactly; they are not clinically calibrated.
const (
	confirmBoost  = 8.0
	confirmCeil   = 95.0
	decayStep     = 3.0
	negationFloor = 10.0
	mismatchFloor = 5.0

	hintBandLow    = 40.0
	hintBandHigh   = 65.0
	catalogBandLow = 30.0
	catalogBandHigh = 50.0
	fillerBandLow  = 15.0
	fillerBandHigh = 30.0

	narrowingQuestionCount = 5
)

type Config struct {
	TargetPoolSize           int
	MinPoolBeforeInference   int
	MinDiseasesForCompletion int
}

// Service owns DiagnosisState.Candidates across turns: pool initialization on
// the first turn, narrowing on every subsequent one.
type Service struct {
	cfg       Config
	inference inference.Client
	logger    *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(cfg Config, inf inference.Client, log *logger.Logger) *Service {
	return &Service{
		cfg:       cfg,
		inference: inf,
		logger:    log,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) randomInBand(low, high float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return low + s.rng.Float64()*(high-low)
}

// Initialize builds the candidate pool toward the target size by merging, in
// priority order: retriever hints, the symptom-category catalog, a single
// batched identification call (only when still short), and generic fillers.
func (s *Service) Initialize(ctx context.Context, state *model.DiagnosisState, text string, diseaseHints []string, patientSummary string) {
	symptoms := DetectSymptoms(text)
	state.AddSymptoms(symptoms)

	pool := make([]model.DiseaseCandidate, 0, s.cfg.TargetPoolSize)
	seen := make(map[string]bool)

	add := func(name string, probability float64, matched []string) {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] || len(pool) >= s.cfg.TargetPoolSize {
			return
		}
		seen[key] = true
		pool = append(pool, model.DiseaseCandidate{
			Name:            strings.TrimSpace(name),
			Probability:     probability,
			MatchedSymptoms: matched,
		})
	}

	for _, hint := range diseaseHints {
		add(hint, s.randomInBand(hintBandLow, hintBandHigh), append([]string(nil), symptoms...))
	}

	for _, condition := range categoriesFor(symptoms) {
		add(condition, s.randomInBand(catalogBandLow, catalogBandHigh), append([]string(nil), symptoms...))
	}

	if len(pool) < s.cfg.MinPoolBeforeInference {
		ranked, err := s.inference.IdentifyDiseases(ctx, symptoms, patientSummary)
		if err != nil {
			s.logger.WithStage("tracker").Warn("disease identification failed, continuing with catalog pool",
				"error", err)
		} else {
			for _, d := range ranked {
				p := math.Min(math.Max(d.Probability, catalogBandLow), hintBandHigh)
				add(d.Name, p, append([]string(nil), symptoms...))
			}
		}
	}

	for _, filler := range genericFillers {
		if len(pool) >= s.cfg.TargetPoolSize {
			break
		}
		add(filler, s.randomInBand(fillerBandLow, fillerBandHigh), nil)
	}

	state.Candidates = pool
	state.InitialPoolSize = len(pool)
	state.SortCandidates()
	state.PendingQuestions = s.buildNarrowingQuestions(state)
}

// Narrow updates the candidate set from the patient's latest utterance.
func (s *Service) Narrow(ctx context.Context, state *model.DiagnosisState, text string, turn int) {
	symptoms := DetectSymptoms(text)

	if IsNegation(text) {
		s.applyNegation(state, turn)
	} else {
		s.applyConfirmation(state, symptoms)
	}
	state.AddSymptoms(symptoms)

	s.applyEliminationPass(state, turn)
	s.applyPoolCap(state, turn)

	state.SortCandidates()
	state.PendingQuestions = s.buildNarrowingQuestions(state)
}

// applyNegation eliminates every candidate tied to the denied target symptom
// of the most recent narrowing question and decays the survivors, whether or
// not any candidate was tied. With no prior question the negation is a no-op
// beyond symptom bookkeeping.
func (s *Service) applyNegation(state *model.DiagnosisState, turn int) {
	if len(state.PendingQuestions) == 0 {
		return
	}
	target := state.PendingQuestions[0].TargetSymptom
	if target == "" {
		return
	}

	var survivors []model.DiseaseCandidate
	var eliminated []string
	for _, c := range state.Candidates {
		if c.MatchesSymptom(target) {
			eliminated = append(eliminated, c.Name)
			continue
		}
		c.Probability = math.Max(c.Probability-decayStep, negationFloor)
		survivors = append(survivors, c)
	}

	state.Candidates = survivors
	if len(eliminated) == 0 {
		return
	}

	state.RuledOut = append(state.RuledOut, model.EliminationRecord{
		Turn:       turn,
		Eliminated: eliminated,
		Reason:     fmt.Sprintf("patient denied %q", target),
		Remaining:  len(survivors),
		CreatedAt:  time.Now(),
	})
}

// applyConfirmation boosts candidates intersecting the newly detected
// symptoms and decays the rest.
func (s *Service) applyConfirmation(state *model.DiagnosisState, symptoms []string) {
	if len(symptoms) == 0 {
		return
	}
	for i := range state.Candidates {
		c := &state.Candidates[i]
		matched := false
		for _, sym := range symptoms {
			if c.MatchesSymptom(sym) {
				matched = true
				break
			}
		}
		if matched {
			c.Probability = math.Min(c.Probability+confirmBoost, confirmCeil)
			c.MatchedSymptoms = mergeSymptoms(c.MatchedSymptoms, symptoms)
		} else {
			c.Probability = math.Max(c.Probability-decayStep, mismatchFloor)
		}
	}
}

// applyEliminationPass drops the lowest 30% of candidates sitting under a
// probability floor that tightens as turns progress, while more than 10
// candidates remain.
func (s *Service) applyEliminationPass(state *model.DiagnosisState, turn int) {
	if len(state.Candidates) <= 10 {
		return
	}

	floor := math.Max(10, 30-2*float64(turn))
	state.SortCandidates()

	dropBudget := int(float64(len(state.Candidates)) * 0.3)
	var eliminated []string

	for dropBudget > 0 && len(state.Candidates) > 10 {
		last := len(state.Candidates) - 1
		if state.Candidates[last].Probability >= floor {
			break
		}
		eliminated = append(eliminated, state.Candidates[last].Name)
		state.Candidates = state.Candidates[:last]
		dropBudget--
	}

	if len(eliminated) > 0 {
		state.RuledOut = append(state.RuledOut, model.EliminationRecord{
			Turn:       turn,
			Eliminated: eliminated,
			Reason:     fmt.Sprintf("probability below floor %.0f", floor),
			Remaining:  len(state.Candidates),
			CreatedAt:  time.Now(),
		})
	}
}

// applyPoolCap truncates the pool to a size that shrinks linearly with turn
// count, never below the completion minimum.
func (s *Service) applyPoolCap(state *model.DiagnosisState, turn int) {
	limit := state.InitialPoolSize - 5*turn
	if limit < s.cfg.MinDiseasesForCompletion {
		limit = s.cfg.MinDiseasesForCompletion
	}
	if len(state.Candidates) <= limit {
		return
	}

	state.SortCandidates()
	truncated := make([]string, 0, len(state.Candidates)-limit)
	for _, c := range state.Candidates[limit:] {
		truncated = append(truncated, c.Name)
	}
	state.Candidates = state.Candidates[:limit]

	state.RuledOut = append(state.RuledOut, model.EliminationRecord{
		Turn:       turn,
		Eliminated: truncated,
		Reason:     fmt.Sprintf("pool capped at %d", limit),
		Remaining:  len(state.Candidates),
		CreatedAt:  time.Now(),
	})
}

// buildNarrowingQuestions converts the top candidates into next-turn question
// stubs; the dialogue policy fills in the phrasing.
func (s *Service) buildNarrowingQuestions(state *model.DiagnosisState) []model.NarrowingQuestion {
	identified := make(map[string]bool, len(state.IdentifiedSymptoms))
	for _, sym := range state.IdentifiedSymptoms {
		identified[strings.ToLower(sym)] = true
	}

	var questions []model.NarrowingQuestion
	for _, c := range state.Candidates {
		if len(questions) >= narrowingQuestionCount {
			break
		}
		target := ""
		for _, d := range c.DifferentiatingSymptoms {
			if !identified[strings.ToLower(d)] {
				target = d
				break
			}
		}
		questions = append(questions, model.NarrowingQuestion{
			Candidate:     c.Name,
			TargetSymptom: target,
		})
	}
	return questions
}

func mergeSymptoms(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[strings.ToLower(s)] = true
	}
	for _, s := range incoming {
		if !seen[strings.ToLower(s)] {
			seen[strings.ToLower(s)] = true
			existing = append(existing, s)
		}
	}
	return existing
}
