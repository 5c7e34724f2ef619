package model

import (
	"fmt"
	"sort"
	"time"
)

// MatchID uniquely identifies a recorded match
type MatchID string

// Outcome is the result of a match from the perspective of player A
type Outcome string

const (
	OutcomeAWon Outcome = "A_WON"
	OutcomeBWon Outcome = "B_WON"
	OutcomeDraw Outcome = "DRAW"
)

// ParseOutcome converts a wire token to an Outcome
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeAWon, OutcomeBWon, OutcomeDraw:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// Valid reports whether o is one of the known outcomes
func (o Outcome) Valid() bool {
	_, err := ParseOutcome(string(o))
	return err == nil
}

// ScoreA returns the actual score for player A: 1 for a win, 0 for a loss, 0.5 for a draw.
// It panics on an unknown outcome; callers validate with ParseOutcome first.
func (o Outcome) ScoreA() float64 {
	switch o {
	case OutcomeAWon:
		return 1
	case OutcomeBWon:
		return 0
	case OutcomeDraw:
		return 0.5
	}
	panic(fmt.Sprintf("unknown outcome %q", string(o)))
}

// Match is a single recorded game between two players.
// PlayerA plays white and PlayerB plays black.
type Match struct {
	ID       MatchID
	Seq      int64 // insertion sequence assigned by storage
	PlayerA  PlayerID
	PlayerB  PlayerID
	Outcome  Outcome
	PlayedAt time.Time
}

// Clone returns a copy of the match
func (m *Match) Clone() *Match {
	c := *m
	return &c
}

// Involves reports whether the player took part in the match
func (m *Match) Involves(id PlayerID) bool {
	return m.PlayerA == id || m.PlayerB == id
}

// Opponent returns the other participant, or "" if id did not play
func (m *Match) Opponent(id PlayerID) PlayerID {
	switch id {
	case m.PlayerA:
		return m.PlayerB
	case m.PlayerB:
		return m.PlayerA
	}
	return ""
}

// Winner returns the winning player, or "" for a draw
func (m *Match) Winner() PlayerID {
	switch m.Outcome {
	case OutcomeAWon:
		return m.PlayerA
	case OutcomeBWon:
		return m.PlayerB
	}
	return ""
}

// Loser returns the losing player, or "" for a draw
func (m *Match) Loser() PlayerID {
	switch m.Outcome {
	case OutcomeAWon:
		return m.PlayerB
	case OutcomeBWon:
		return m.PlayerA
	}
	return ""
}

// Before reports whether m sorts before other in history order:
// ascending PlayedAt, ties broken by ascending Seq.
func (m *Match) Before(other *Match) bool {
	if !m.PlayedAt.Equal(other.PlayedAt) {
		return m.PlayedAt.Before(other.PlayedAt)
	}
	return m.Seq < other.Seq
}

// SortHistory sorts matches into history order in place
func SortHistory(matches []*Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Before(matches[j])
	})
}
