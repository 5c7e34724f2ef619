package rating

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/mcoot/chessladder/internal/model"
)

func TestExpectedEqualRatings(t *testing.T) {
	assert.InDelta(t, 0.5, Expected(1200, 1200), 1e-12)
}

func TestExpectedFourHundredPointGap(t *testing.T) {
	assert.InDelta(t, 10.0/11.0, Expected(1600, 1200), 1e-12)
	assert.InDelta(t, 1.0/11.0, Expected(1200, 1600), 1e-12)
}

func TestApplyFirstWinFromBaseline(t *testing.T) {
	a, b := Apply(1200, 1200, model.OutcomeAWon, DefaultKFactor)
	assert.Equal(t, 1248, a)
	assert.Equal(t, 1152, b)
}

func TestApplyUsesPreMatchSnapshotForBothSides(t *testing.T) {
	a, b := Apply(1248, 1152, model.OutcomeAWon, DefaultKFactor)
	assert.Equal(t, 1283, a)
	assert.Equal(t, 1117, b)
}

func TestApplyLossMirrorsWin(t *testing.T) {
	a, b := Apply(1200, 1200, model.OutcomeBWon, DefaultKFactor)
	assert.Equal(t, 1152, a)
	assert.Equal(t, 1248, b)
}

func TestApplyDrawAtEqualRatingsIsNoop(t *testing.T) {
	a, b := Apply(1375, 1375, model.OutcomeDraw, DefaultKFactor)
	assert.Equal(t, 1375, a)
	assert.Equal(t, 1375, b)
}

func TestApplyDrawFavoursLowerRated(t *testing.T) {
	a, b := Apply(1248, 1152, model.OutcomeDraw, DefaultKFactor)
	assert.Equal(t, 1235, a)
	assert.Equal(t, 1165, b)
}

func TestApplyDoesNotClamp(t *testing.T) {
	a, _ := Apply(10, 3000, model.OutcomeBWon, DefaultKFactor)
	assert.Equal(t, 10, a)

	a, b := Apply(-50, -50, model.OutcomeBWon, DefaultKFactor)
	assert.Equal(t, -98, a)
	assert.Equal(t, -2, b)
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{1247.5, 1248},
		{1247.4999, 1247},
		{1152.5, 1153},
		{-0.5, 0},
		{-1.5, -1},
		{-1.6, -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in), "Round(%v)", tt.in)
	}
}

func TestScoreAPanicsOnUnknownOutcome(t *testing.T) {
	assert.Panics(t, func() {
		Apply(1200, 1200, model.Outcome("WHITE_WON"), DefaultKFactor)
	})
}

func TestEloProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expected scores sum to one", prop.ForAll(
		func(a, b int) bool {
			return math.Abs(Expected(a, b)+Expected(b, a)-1) < 1e-9
		},
		gen.IntRange(-1000, 4000),
		gen.IntRange(-1000, 4000),
	))

	properties.Property("rating points are conserved up to rounding", prop.ForAll(
		func(a, b, o int) bool {
			outcome := []model.Outcome{model.OutcomeAWon, model.OutcomeBWon, model.OutcomeDraw}[o]
			newA, newB := Apply(a, b, outcome, DefaultKFactor)
			drift := (newA + newB) - (a + b)
			return drift >= -1 && drift <= 1
		},
		gen.IntRange(0, 3000),
		gen.IntRange(0, 3000),
		gen.IntRange(0, 2),
	))

	properties.Property("a single match moves a rating by at most K", prop.ForAll(
		func(a, b, o int) bool {
			outcome := []model.Outcome{model.OutcomeAWon, model.OutcomeBWon, model.OutcomeDraw}[o]
			newA, newB := Apply(a, b, outcome, DefaultKFactor)
			return abs(newA-a) <= DefaultKFactor && abs(newB-b) <= DefaultKFactor
		},
		gen.IntRange(0, 3000),
		gen.IntRange(0, 3000),
		gen.IntRange(0, 2),
	))

	properties.Property("winning never lowers a rating", prop.ForAll(
		func(a, b int) bool {
			newA, newB := Apply(a, b, model.OutcomeAWon, DefaultKFactor)
			return newA >= a && newB <= b
		},
		gen.IntRange(0, 3000),
		gen.IntRange(0, 3000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
