package confidence

import "math"

// Weighting constants for the composite score. Hand-tuned heuristics with no
// clinical derivation; preserved exactly for behavioral parity.
const (
	reductionWeight   = 50.0
	symptomWeight     = 4.0
	symptomCap        = 25.0
	turnWeight        = 3.0
	turnCap           = 25.0
	topCandidateWeight = 0.15

	scoreCap        = 95.0
	earlyTurnCap    = 85.0
)

type Config struct {
	MinimumTurns int
}

// Estimator derives a single 0-100 confidence score from candidate-set
// shrinkage, symptom count, turn count, and top-candidate probability. It is
// a heuristic composite, not a calibrated probability.
type Estimator struct {
	cfg Config
}

func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate is a deterministic function of its four inputs.
func (e *Estimator) Estimate(initialPoolSize, currentPoolSize, symptomCount, turnCount int, topProbability float64) float64 {
	var reductionRatio float64
	if initialPoolSize > 0 {
		reductionRatio = float64(initialPoolSize-currentPoolSize) / float64(initialPoolSize)
	}

	score := reductionRatio*reductionWeight +
		math.Min(float64(symptomCount)*symptomWeight, symptomCap) +
		math.Min(float64(turnCount)*turnWeight, turnCap) +
		topProbability*topCandidateWeight

	score = math.Min(score, scoreCap)
	if turnCount < e.cfg.MinimumTurns {
		score = math.Min(score, earlyTurnCap)
	}
	return math.Max(score, 0)
}
