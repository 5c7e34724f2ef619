// Package history builds a player's lifetime rating trajectory by replaying
// the full match history.
package history

import (
	"context"
	"time"

	"github.com/mcoot/chessladder/internal/metrics"
	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/services/rating"
	"github.com/mcoot/chessladder/internal/storage"
)

// InitialCheckpoint labels the checkpoint at registration time
const InitialCheckpoint = "init"

// Checkpoint is the player's rating after an event
type Checkpoint struct {
	At     time.Time
	Rating int
	Label  string // match ID, or InitialCheckpoint
}

// Stats are lifetime aggregates for one player
type Stats struct {
	CurrentElo   int
	PeakElo      int
	LowestElo    int
	Wins         int
	Losses       int
	Draws        int
	GamesPlayed  int
	GamesAsWhite int
	GamesAsBlack int
}

// WinRate returns wins as a percentage of games played
func (s Stats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) * 100 / float64(s.GamesPlayed)
}

// MatchResult is one match from the player's perspective
type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
	ResultDraw MatchResult = "draw"
)

// PlayerMatch is one match in the player's history
type PlayerMatch struct {
	Match        *model.Match
	AsWhite      bool
	Result       MatchResult
	OpponentID   model.PlayerID
	OpponentName string // empty if the opponent no longer exists
	EloBefore    int
	EloAfter     int
	OpponentElo  int // opponent rating after the match
}

// History is a player's lifetime view
type History struct {
	Player      *model.Player
	Stats       Stats
	Checkpoints []Checkpoint  // oldest first
	Matches     []PlayerMatch // newest first
}

// Service computes player histories
type Service struct {
	storage storage.Reader
	engine  rating.Engine
}

// New creates a history Service
func New(storage storage.Reader, engine rating.Engine) *Service {
	return &Service{storage: storage, engine: engine}
}

// Get returns the lifetime history of a player
func (s *Service) Get(ctx context.Context, id model.PlayerID) (*History, error) {
	start := time.Now()
	defer func() {
		metrics.ViewDuration.WithLabelValues("history").Observe(time.Since(start).Seconds())
	}()

	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	players, err := s.storage.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	// Every player's rating moves, so the full history is needed even
	// though only this player's matches are reported.
	matches, err := s.storage.ListMatches(ctx, storage.MatchQuery{})
	if err != nil {
		return nil, err
	}

	names := make(map[model.PlayerID]string, len(players))
	ids := make([]model.PlayerID, len(players))
	for i, p := range players {
		names[p.ID] = p.Name
		ids[i] = p.ID
	}

	h := &History{
		Player: player,
		Stats: Stats{
			PeakElo:   rating.Baseline,
			LowestElo: rating.Baseline,
		},
		Checkpoints: []Checkpoint{{At: player.CreatedAt, Rating: rating.Baseline, Label: InitialCheckpoint}},
	}

	ratings, err := s.engine.Replay(ids, matches, func(step rating.Step) {
		m := step.Match
		if !m.Involves(id) {
			return
		}
		h.record(id, step, names)
	})
	if err != nil {
		return nil, err
	}

	h.Stats.CurrentElo = ratings.Of(id)

	// reverse to newest first
	for i, j := 0, len(h.Matches)-1; i < j; i, j = i+1, j-1 {
		h.Matches[i], h.Matches[j] = h.Matches[j], h.Matches[i]
	}
	return h, nil
}

func (h *History) record(id model.PlayerID, step rating.Step, names map[model.PlayerID]string) {
	m := step.Match
	opponent := m.Opponent(id)
	after := step.After(id)

	pm := PlayerMatch{
		Match:        m,
		AsWhite:      m.PlayerA == id,
		OpponentID:   opponent,
		OpponentName: names[opponent],
		EloBefore:    step.Before(id),
		EloAfter:     after,
		OpponentElo:  step.After(opponent),
	}

	st := &h.Stats
	st.GamesPlayed++
	if pm.AsWhite {
		st.GamesAsWhite++
	} else {
		st.GamesAsBlack++
	}
	switch m.Winner() {
	case id:
		st.Wins++
		pm.Result = ResultWin
	case "":
		st.Draws++
		pm.Result = ResultDraw
	default:
		st.Losses++
		pm.Result = ResultLoss
	}
	st.PeakElo = max(st.PeakElo, after)
	st.LowestElo = min(st.LowestElo, after)

	h.Checkpoints = append(h.Checkpoints, Checkpoint{At: m.PlayedAt, Rating: after, Label: string(m.ID)})
	h.Matches = append(h.Matches, pm)
}
