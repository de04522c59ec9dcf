package gate

// State is the interview completion state. Concluded is terminal; the review
// loop is a separate state machine.
type State string

const (
	StateCollecting State = "collecting"
	StateReady      State = "ready"
	StateConcluded  State = "concluded"
)

type Config struct {
	MinimumTurns         int
	MaximumTurns         int
	ConfidenceThreshold  float64
	SecondaryThreshold   float64
	CompletionCandidates int
}

// Gate decides each turn whether the interview continues or concludes.
type Gate struct {
	cfg Config
}

func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Evaluate returns the next state. Collecting moves to ready only after the
// minimum turn count, and is forced to ready at the maximum turn count so no
// interview stays open indefinitely.
func (g *Gate) Evaluate(current State, turnCount, candidateCount int, confidence float64) State {
	switch current {
	case StateConcluded:
		return StateConcluded
	case StateReady:
		return StateReady
	}

	if turnCount < g.cfg.MinimumTurns {
		return StateCollecting
	}

	switch {
	case confidence >= g.cfg.ConfidenceThreshold:
		return StateReady
	case candidateCount <= g.cfg.CompletionCandidates && confidence >= g.cfg.SecondaryThreshold:
		return StateReady
	case turnCount >= g.cfg.MaximumTurns:
		return StateReady
	}
	return StateCollecting
}

// Conclude marks the terminal transition once the concluding utterance has
// been emitted.
func (g *Gate) Conclude(current State) State {
	if current == StateReady || current == StateConcluded {
		return StateConcluded
	}
	return current
}
