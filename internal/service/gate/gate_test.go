package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newGate() *Gate {
	return NewGate(Config{
		MinimumTurns:         10,
		MaximumTurns:         25,
		ConfidenceThreshold:  90,
		SecondaryThreshold:   85,
		CompletionCandidates: 3,
	})
}

func TestEvaluateStaysCollectingBeforeMinimumTurns(t *testing.T) {
	g := newGate()

	// Even perfect signals cannot conclude an interview early.
	got := g.Evaluate(StateCollecting, 9, 1, 95)
	assert.Equal(t, StateCollecting, got)
}

func TestEvaluateReadyOnPrimaryConfidence(t *testing.T) {
	g := newGate()
	assert.Equal(t, StateReady, g.Evaluate(StateCollecting, 10, 40, 90))
	assert.Equal(t, StateCollecting, g.Evaluate(StateCollecting, 10, 40, 89.9))
}

func TestEvaluateReadyOnNarrowPoolWithSecondaryConfidence(t *testing.T) {
	g := newGate()
	assert.Equal(t, StateReady, g.Evaluate(StateCollecting, 12, 3, 85))
	// Narrow pool alone is not enough.
	assert.Equal(t, StateCollecting, g.Evaluate(StateCollecting, 12, 3, 84))
	// Secondary confidence alone is not enough either.
	assert.Equal(t, StateCollecting, g.Evaluate(StateCollecting, 12, 4, 85))
}

func TestEvaluateForcedReadyAtMaximumTurns(t *testing.T) {
	g := newGate()
	got := g.Evaluate(StateCollecting, 25, 40, 10)
	assert.Equal(t, StateReady, got)
}

func TestEvaluateTerminalStatesAreSticky(t *testing.T) {
	g := newGate()
	assert.Equal(t, StateConcluded, g.Evaluate(StateConcluded, 3, 50, 0))
	assert.Equal(t, StateReady, g.Evaluate(StateReady, 3, 50, 0))
}

func TestConclude(t *testing.T) {
	g := newGate()
	assert.Equal(t, StateConcluded, g.Conclude(StateReady))
	assert.Equal(t, StateConcluded, g.Conclude(StateConcluded))
	// Collecting interviews cannot jump straight to concluded.
	assert.Equal(t, StateCollecting, g.Conclude(StateCollecting))
}
