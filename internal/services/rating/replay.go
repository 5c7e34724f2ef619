package rating

import (
	"fmt"

	"github.com/mcoot/chessladder/internal/model"
)

// Ratings maps players to their rating at some point in the history
type Ratings map[model.PlayerID]int

// Of returns the rating of a player, or Baseline if they have not been seen
func (r Ratings) Of(id model.PlayerID) int {
	if v, ok := r[id]; ok {
		return v
	}
	return Baseline
}

// Step is a single match applied during a replay
type Step struct {
	Match   *model.Match
	BeforeA int
	BeforeB int
	AfterA  int
	AfterB  int
}

// Before returns the pre-match rating of a participant
func (s Step) Before(id model.PlayerID) int {
	if id == s.Match.PlayerA {
		return s.BeforeA
	}
	return s.BeforeB
}

// After returns the post-match rating of a participant
func (s Step) After(id model.PlayerID) int {
	if id == s.Match.PlayerA {
		return s.AfterA
	}
	return s.AfterB
}

// Engine folds the rating function over an ordered match history
type Engine struct {
	KFactor int
}

// NewEngine creates an engine, falling back to DefaultKFactor for k <= 0
func NewEngine(k int) Engine {
	if k <= 0 {
		k = DefaultKFactor
	}
	return Engine{KFactor: k}
}

// Apply returns both new ratings for a single match using the engine's K
func (e Engine) Apply(a, b int, outcome model.Outcome) (int, int) {
	return Apply(a, b, outcome, e.KFactor)
}

// Replay starts every listed player at Baseline and applies each match in
// history order (PlayedAt, then Seq). Players referenced by a match but not
// listed also start at Baseline. visit, if non-nil, observes every step.
// The input slice is not modified.
func (e Engine) Replay(players []model.PlayerID, matches []*model.Match, visit func(Step)) (Ratings, error) {
	ratings := make(Ratings, len(players))
	for _, id := range players {
		ratings[id] = Baseline
	}

	ordered := make([]*model.Match, len(matches))
	copy(ordered, matches)
	model.SortHistory(ordered)

	for _, m := range ordered {
		if !m.Outcome.Valid() {
			return nil, fmt.Errorf("match %s: %w: %q", m.ID, model.ErrInvalidOutcome, string(m.Outcome))
		}
		step := Step{
			Match:   m,
			BeforeA: ratings.Of(m.PlayerA),
			BeforeB: ratings.Of(m.PlayerB),
		}
		step.AfterA, step.AfterB = e.Apply(step.BeforeA, step.BeforeB, m.Outcome)
		ratings[m.PlayerA] = step.AfterA
		ratings[m.PlayerB] = step.AfterB
		if visit != nil {
			visit(step)
		}
	}
	return ratings, nil
}
