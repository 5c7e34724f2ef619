// Package rating implements Elo arithmetic and the canonical ladder replay.
package rating

import (
	"math"

	"github.com/mcoot/chessladder/internal/model"
)

const (
	// Baseline is the rating every player starts from
	Baseline = 1200

	// DefaultKFactor is the maximum rating change from a single match
	DefaultKFactor = 96

	// scale is the rating difference at which the stronger side is expected to score 10:1
	scale = 400.0
)

// Expected returns the expected score of a player rated a against a player rated b.
// Expected(a, b) + Expected(b, a) == 1.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/scale))
}

// Calculate returns the new rating of a player rated r after scoring score
// (1 win, 0.5 draw, 0 loss) against an opponent rated opp.
func Calculate(r, opp int, score float64, k int) int {
	return Round(float64(r) + float64(k)*(score-Expected(r, opp)))
}

// Apply returns both players' new ratings for a match outcome.
// Both sides are computed from the same pre-match ratings.
func Apply(a, b int, outcome model.Outcome, k int) (newA, newB int) {
	scoreA := outcome.ScoreA()
	return Calculate(a, b, scoreA, k), Calculate(b, a, 1-scoreA, k)
}

// Round rounds half toward positive infinity, so 1247.5 -> 1248 and -0.5 -> 0
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}
