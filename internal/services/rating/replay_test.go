package rating

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessladder/internal/model"
)

type ReplaySuite struct {
	suite.Suite
	engine Engine
	t0     time.Time
}

func TestReplaySuite(t *testing.T) {
	suite.Run(t, new(ReplaySuite))
}

func (s *ReplaySuite) SetupTest() {
	s.engine = NewEngine(DefaultKFactor)
	s.t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
}

func (s *ReplaySuite) match(id string, seq int64, a, b model.PlayerID, o model.Outcome, at time.Duration) *model.Match {
	return &model.Match{
		ID:       model.MatchID(id),
		Seq:      seq,
		PlayerA:  a,
		PlayerB:  b,
		Outcome:  o,
		PlayedAt: s.t0.Add(at),
	}
}

func (s *ReplaySuite) TestNoMatchesLeavesEveryoneAtBaseline() {
	ratings, err := s.engine.Replay([]model.PlayerID{"alice", "bob"}, nil, nil)
	s.Require().NoError(err)
	s.Equal(Ratings{"alice": 1200, "bob": 1200}, ratings)
}

func (s *ReplaySuite) TestTwoConsecutiveWins() {
	matches := []*model.Match{
		s.match("m1", 1, "alice", "bob", model.OutcomeAWon, 0),
		s.match("m2", 2, "alice", "bob", model.OutcomeAWon, time.Hour),
	}

	ratings, err := s.engine.Replay([]model.PlayerID{"alice", "bob"}, matches, nil)
	s.Require().NoError(err)
	s.Equal(1283, ratings["alice"])
	s.Equal(1117, ratings["bob"])
}

func (s *ReplaySuite) TestOrderIsByPlayedAtNotInput() {
	players := []model.PlayerID{"a", "b", "c"}
	first := s.match("m1", 2, "a", "b", model.OutcomeAWon, 0)
	second := s.match("m2", 1, "b", "c", model.OutcomeAWon, time.Hour)

	ratings, err := s.engine.Replay(players, []*model.Match{second, first}, nil)
	s.Require().NoError(err)
	s.Equal(Ratings{"a": 1248, "b": 1207, "c": 1145}, ratings)

	// Swapping the timestamps swaps the order and the result
	first.PlayedAt, second.PlayedAt = second.PlayedAt, first.PlayedAt
	ratings, err = s.engine.Replay(players, []*model.Match{first, second}, nil)
	s.Require().NoError(err)
	s.Equal(Ratings{"a": 1255, "b": 1193, "c": 1152}, ratings)
}

func (s *ReplaySuite) TestEqualTimestampsFallBackToSeq() {
	players := []model.PlayerID{"a", "b", "c"}
	ab := s.match("m-ab", 1, "a", "b", model.OutcomeAWon, 0)
	bc := s.match("m-bc", 2, "b", "c", model.OutcomeAWon, 0)

	ratings, err := s.engine.Replay(players, []*model.Match{bc, ab}, nil)
	s.Require().NoError(err)
	s.Equal(Ratings{"a": 1248, "b": 1207, "c": 1145}, ratings)
}

func (s *ReplaySuite) TestReplayDoesNotReorderInput() {
	late := s.match("m2", 2, "a", "b", model.OutcomeAWon, time.Hour)
	early := s.match("m1", 1, "a", "b", model.OutcomeDraw, 0)
	input := []*model.Match{late, early}

	_, err := s.engine.Replay(nil, input, nil)
	s.Require().NoError(err)
	s.Same(late, input[0])
	s.Same(early, input[1])
}

func (s *ReplaySuite) TestUnlistedPlayersStartAtBaseline() {
	ratings, err := s.engine.Replay(nil, []*model.Match{
		s.match("m1", 1, "x", "y", model.OutcomeBWon, 0),
	}, nil)
	s.Require().NoError(err)
	s.Equal(1152, ratings["x"])
	s.Equal(1248, ratings["y"])
	s.Equal(Baseline, ratings.Of("z"))
}

func (s *ReplaySuite) TestVisitorSeesEachStepInOrder() {
	matches := []*model.Match{
		s.match("m2", 2, "a", "b", model.OutcomeAWon, time.Hour),
		s.match("m1", 1, "a", "b", model.OutcomeAWon, 0),
	}

	var steps []Step
	_, err := s.engine.Replay(nil, matches, func(st Step) { steps = append(steps, st) })
	s.Require().NoError(err)

	s.Require().Len(steps, 2)
	s.Equal(model.MatchID("m1"), steps[0].Match.ID)
	s.Equal(1200, steps[0].Before("a"))
	s.Equal(1248, steps[0].After("a"))
	s.Equal(1152, steps[0].After("b"))
	s.Equal(model.MatchID("m2"), steps[1].Match.ID)
	s.Equal(1248, steps[1].BeforeA)
	s.Equal(1152, steps[1].BeforeB)
	s.Equal(1283, steps[1].AfterA)
	s.Equal(1117, steps[1].AfterB)
}

func (s *ReplaySuite) TestInvalidOutcomeFailsReplay() {
	_, err := s.engine.Replay(nil, []*model.Match{
		s.match("m1", 1, "a", "b", model.Outcome("bogus"), 0),
	}, nil)
	s.ErrorIs(err, model.ErrInvalidOutcome)
}

func (s *ReplaySuite) TestNewEngineDefaultsK() {
	s.Equal(DefaultKFactor, NewEngine(0).KFactor)
	s.Equal(32, NewEngine(32).KFactor)
}

var outcomes = []model.Outcome{model.OutcomeAWon, model.OutcomeBWon, model.OutcomeDraw}

// genHistory builds a random match history over four players, encoded as
// triples of (playerA, playerB offset, outcome) so that A never plays itself.
func genHistory() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 4*3*3-1))
}

func decodeHistory(codes []int) []*model.Match {
	players := []model.PlayerID{"p0", "p1", "p2", "p3"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	matches := make([]*model.Match, 0, len(codes))
	for i, code := range codes {
		a := code % 4
		b := (a + 1 + (code/4)%3) % 4
		matches = append(matches, &model.Match{
			ID:       model.MatchID("m" + string(rune('a'+i%26))),
			Seq:      int64(i + 1),
			PlayerA:  players[a],
			PlayerB:  players[b],
			Outcome:  outcomes[code/12],
			PlayedAt: base.Add(time.Duration(i/3) * time.Minute),
		})
	}
	return matches
}

func TestReplayProperties(t *testing.T) {
	engine := NewEngine(DefaultKFactor)
	players := []model.PlayerID{"p0", "p1", "p2", "p3"}
	properties := gopter.NewProperties(nil)

	properties.Property("replay is idempotent", prop.ForAll(
		func(codes []int) bool {
			matches := decodeHistory(codes)
			first, err := engine.Replay(players, matches, nil)
			if err != nil {
				return false
			}
			second, err := engine.Replay(players, matches, nil)
			if err != nil {
				return false
			}
			for _, id := range players {
				if first[id] != second[id] {
					return false
				}
			}
			return true
		},
		genHistory(),
	))

	properties.Property("replay equals a left fold of Apply", prop.ForAll(
		func(codes []int) bool {
			matches := decodeHistory(codes)
			got, err := engine.Replay(players, matches, nil)
			if err != nil {
				return false
			}

			want := map[model.PlayerID]int{}
			for _, id := range players {
				want[id] = Baseline
			}
			for _, m := range matches {
				want[m.PlayerA], want[m.PlayerB] = Apply(want[m.PlayerA], want[m.PlayerB], m.Outcome, DefaultKFactor)
			}
			for _, id := range players {
				if got[id] != want[id] {
					return false
				}
			}
			return true
		},
		genHistory(),
	))

	properties.Property("input order does not matter", prop.ForAll(
		func(codes []int) bool {
			matches := decodeHistory(codes)
			reversed := make([]*model.Match, len(matches))
			for i, m := range matches {
				reversed[len(matches)-1-i] = m
			}
			a, errA := engine.Replay(players, matches, nil)
			b, errB := engine.Replay(players, reversed, nil)
			if errA != nil || errB != nil {
				return false
			}
			for _, id := range players {
				if a[id] != b[id] {
					return false
				}
			}
			return true
		},
		genHistory(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
