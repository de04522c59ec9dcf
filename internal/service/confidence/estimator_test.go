package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newEstimator() *Estimator {
	return NewEstimator(Config{MinimumTurns: 10})
}

func TestEstimateEmptyInputs(t *testing.T) {
	e := newEstimator()
	assert.Equal(t, 0.0, e.Estimate(0, 0, 0, 0, 0))
}

func TestEstimateCompositeFormula(t *testing.T) {
	e := newEstimator()

	// 40% reduction, 3 symptoms, 4 turns, top probability 60:
	// 0.4*50 + 3*4 + 4*3 + 60*0.15 = 20 + 12 + 12 + 9 = 53.
	got := e.Estimate(50, 30, 3, 4, 60)
	assert.InDelta(t, 53.0, got, 0.001)
}

func TestEstimateSymptomAndTurnContributionsAreCapped(t *testing.T) {
	e := newEstimator()

	// 100 symptoms contribute the same as 7 (cap 25); 50 turns the same as 9.
	capped := e.Estimate(50, 50, 100, 50, 0)
	assert.InDelta(t, 50.0, capped, 0.001)
}

func TestEstimateNeverExceedsCap(t *testing.T) {
	e := newEstimator()
	got := e.Estimate(50, 3, 20, 20, 95)
	assert.Equal(t, 95.0, got)
}

func TestEstimateCappedBeforeMinimumTurns(t *testing.T) {
	e := newEstimator()

	// Same strong signals, but under the minimum turn count.
	early := e.Estimate(50, 3, 20, 9, 95)
	assert.Equal(t, 85.0, early)

	late := e.Estimate(50, 3, 20, 10, 95)
	assert.Equal(t, 95.0, late)
}

func TestEstimateShrinkingPoolRaisesScore(t *testing.T) {
	e := newEstimator()
	wide := e.Estimate(50, 45, 2, 3, 40)
	narrow := e.Estimate(50, 5, 2, 3, 40)
	assert.Greater(t, narrow, wide)
}

func TestEstimateNeverNegative(t *testing.T) {
	e := newEstimator()
	// Pool grew beyond the initial size; reduction ratio goes negative.
	got := e.Estimate(10, 20, 0, 0, 0)
	assert.GreaterOrEqual(t, got, 0.0)
}
