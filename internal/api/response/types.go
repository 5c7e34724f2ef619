package response

import (
	"sort"
	"time"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/services/funfacts"
	"github.com/mcoot/chessladder/internal/services/history"
	"github.com/mcoot/chessladder/internal/services/ladder"
	"github.com/mcoot/chessladder/internal/services/rating"
	"github.com/mcoot/chessladder/internal/services/scoreboard"
)

// Health is the response for the health endpoint
type Health struct {
	Status string `json:"status"`
}

// Player represents a player in API responses
type Player struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CurrentElo int       `json:"current_elo"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:         string(p.ID),
		Name:       p.Name,
		CurrentElo: p.CurrentElo,
		CreatedAt:  p.CreatedAt,
	}
}

// PlayersFromModel converts a list of players
func PlayersFromModel(players []*model.Player) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = PlayerFromModel(p)
	}
	return out
}

// PlayerList is the response for listing players
type PlayerList struct {
	Players []Player `json:"players"`
}

// DeletePlayer is the response for deleting a player
type DeletePlayer struct {
	DeletedMatches int `json:"deleted_matches"`
}

// Match represents a match in API responses
type Match struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	PlayerAID   string    `json:"player_a_id"`
	PlayerAName string    `json:"player_a_name,omitempty"`
	PlayerBID   string    `json:"player_b_id"`
	PlayerBName string    `json:"player_b_name,omitempty"`
	Result      string    `json:"result"`
	PlayedAt    time.Time `json:"played_at"`
}

// MatchFromModel converts a model.Match. names may be nil.
func MatchFromModel(m *model.Match, names map[model.PlayerID]string) Match {
	return Match{
		ID:          string(m.ID),
		Seq:         m.Seq,
		PlayerAID:   string(m.PlayerA),
		PlayerAName: names[m.PlayerA],
		PlayerBID:   string(m.PlayerB),
		PlayerBName: names[m.PlayerB],
		Result:      string(m.Outcome),
		PlayedAt:    m.PlayedAt,
	}
}

// MatchList is the response for listing matches
type MatchList struct {
	Matches []Match `json:"matches"`
}

// MatchListFromModel converts matches, resolving names from players
func MatchListFromModel(matches []*model.Match, players []*model.Player) MatchList {
	names := make(map[model.PlayerID]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	out := MatchList{Matches: make([]Match, len(matches))}
	for i, m := range matches {
		out.Matches[i] = MatchFromModel(m, names)
	}
	return out
}

// RecordedMatch is the response for recording a match
type RecordedMatch struct {
	Match    Match  `json:"match"`
	PlayerA  Player `json:"player_a"`
	PlayerB  Player `json:"player_b"`
	Replayed bool   `json:"replayed"`
}

// RecordedMatchFromResult converts a ladder.RecordedMatch
func RecordedMatchFromResult(r *ladder.RecordedMatch) RecordedMatch {
	names := map[model.PlayerID]string{
		r.PlayerA.ID: r.PlayerA.Name,
		r.PlayerB.ID: r.PlayerB.Name,
	}
	return RecordedMatch{
		Match:    MatchFromModel(r.Match, names),
		PlayerA:  PlayerFromModel(r.PlayerA),
		PlayerB:  PlayerFromModel(r.PlayerB),
		Replayed: r.Replayed,
	}
}

// Stats are a player's lifetime aggregates
type Stats struct {
	CurrentElo   int     `json:"current_elo"`
	PeakElo      int     `json:"peak_elo"`
	LowestElo    int     `json:"lowest_elo"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Draws        int     `json:"draws"`
	GamesPlayed  int     `json:"games_played"`
	GamesAsWhite int     `json:"games_as_white"`
	GamesAsBlack int     `json:"games_as_black"`
	WinRate      float64 `json:"win_rate"`
}

// Checkpoint is one point of a player's rating trajectory
type Checkpoint struct {
	At     time.Time `json:"at"`
	Rating int       `json:"rating"`
	Label  string    `json:"label"`
}

// PlayerMatch is a match from one player's perspective
type PlayerMatch struct {
	MatchID      string    `json:"match_id"`
	PlayedAt     time.Time `json:"played_at"`
	Result       string    `json:"result"`
	AsWhite      bool      `json:"as_white"`
	OpponentID   string    `json:"opponent_id"`
	OpponentName string    `json:"opponent_name"`
	EloBefore    int       `json:"elo_before"`
	EloAfter     int       `json:"elo_after"`
	OpponentElo  int       `json:"opponent_elo"`
}

// PlayerHistory is the response for a single player
type PlayerHistory struct {
	Player      Player        `json:"player"`
	Stats       Stats         `json:"stats"`
	Checkpoints []Checkpoint  `json:"checkpoints"`
	Matches     []PlayerMatch `json:"matches"`
}

// PlayerHistoryFromHistory converts a history.History
func PlayerHistoryFromHistory(h *history.History) PlayerHistory {
	out := PlayerHistory{
		Player: PlayerFromModel(h.Player),
		Stats: Stats{
			CurrentElo:   h.Stats.CurrentElo,
			PeakElo:      h.Stats.PeakElo,
			LowestElo:    h.Stats.LowestElo,
			Wins:         h.Stats.Wins,
			Losses:       h.Stats.Losses,
			Draws:        h.Stats.Draws,
			GamesPlayed:  h.Stats.GamesPlayed,
			GamesAsWhite: h.Stats.GamesAsWhite,
			GamesAsBlack: h.Stats.GamesAsBlack,
			WinRate:      h.Stats.WinRate(),
		},
		Checkpoints: make([]Checkpoint, len(h.Checkpoints)),
		Matches:     make([]PlayerMatch, len(h.Matches)),
	}
	for i, c := range h.Checkpoints {
		out.Checkpoints[i] = Checkpoint{At: c.At, Rating: c.Rating, Label: c.Label}
	}
	for i, m := range h.Matches {
		out.Matches[i] = PlayerMatch{
			MatchID:      string(m.Match.ID),
			PlayedAt:     m.Match.PlayedAt,
			Result:       string(m.Result),
			AsWhite:      m.AsWhite,
			OpponentID:   string(m.OpponentID),
			OpponentName: m.OpponentName,
			EloBefore:    m.EloBefore,
			EloAfter:     m.EloAfter,
			OpponentElo:  m.OpponentElo,
		}
	}
	return out
}

// ScoreboardEntry is one ranked row of a scoreboard
type ScoreboardEntry struct {
	Rank         int    `json:"rank"`
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	Rating       int    `json:"rating"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Draws        int    `json:"draws"`
	GamesPlayed  int    `json:"games_played"`
	GamesAsWhite int    `json:"games_as_white"`
	GamesAsBlack int    `json:"games_as_black"`
}

// Scoreboard is the response for the scoreboard endpoint
type Scoreboard struct {
	Period  string            `json:"period"`
	From    *time.Time        `json:"from,omitempty"`
	To      *time.Time        `json:"to,omitempty"`
	Matches int               `json:"matches"`
	Leader  *ScoreboardEntry  `json:"leader,omitempty"`
	Entries []ScoreboardEntry `json:"entries"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ScoreboardFromModel converts a scoreboard.Scoreboard
func ScoreboardFromModel(b *scoreboard.Scoreboard) Scoreboard {
	out := Scoreboard{
		Period:  string(b.Period),
		From:    optionalTime(b.From),
		To:      optionalTime(b.To),
		Matches: b.Matches,
		Entries: make([]ScoreboardEntry, len(b.Entries)),
	}
	for i, e := range b.Entries {
		out.Entries[i] = ScoreboardEntry{
			Rank:         e.Rank,
			PlayerID:     string(e.PlayerID),
			Name:         e.Name,
			Rating:       e.Rating,
			Wins:         e.Wins,
			Losses:       e.Losses,
			Draws:        e.Draws,
			GamesPlayed:  e.GamesPlayed,
			GamesAsWhite: e.GamesAsWhite,
			GamesAsBlack: e.GamesAsBlack,
		}
	}
	if b.Leader() != nil {
		leader := out.Entries[0]
		out.Leader = &leader
	}
	return out
}

// FunFact is the response for the fun facts endpoint
type FunFact struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// FunFactFromModel converts a funfacts.Fact
func FunFactFromModel(f funfacts.Fact) FunFact {
	return FunFact{Kind: string(f.Kind), Text: f.Text}
}

// PlayerRating is one player's rating
type PlayerRating struct {
	PlayerID string `json:"player_id"`
	Rating   int    `json:"rating"`
}

func ratingsFromModel(r rating.Ratings) []PlayerRating {
	out := make([]PlayerRating, 0, len(r))
	for id, v := range r {
		out = append(out, PlayerRating{PlayerID: string(id), Rating: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Recalculate is the response for a forced recalculation
type Recalculate struct {
	Players int            `json:"players"`
	Matches int            `json:"matches"`
	Ratings []PlayerRating `json:"ratings"`
}

// RecalculateFromResult converts a ladder.RecalculateResult
func RecalculateFromResult(r *ladder.RecalculateResult) Recalculate {
	return Recalculate{
		Players: r.Players,
		Matches: r.Matches,
		Ratings: ratingsFromModel(r.Ratings),
	}
}

// Divergence is a player whose stored rating differs from the replay
type Divergence struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Stored   int    `json:"stored"`
	Replayed int    `json:"replayed"`
}

// Verify is the response for the verify endpoint
type Verify struct {
	Consistent  bool         `json:"consistent"`
	Players     int          `json:"players"`
	Matches     int          `json:"matches"`
	Divergences []Divergence `json:"divergences"`
}

// VerifyFromResult converts a ladder.VerifyResult
func VerifyFromResult(r *ladder.VerifyResult) Verify {
	out := Verify{
		Consistent:  r.Consistent(),
		Players:     r.Players,
		Matches:     r.Matches,
		Divergences: make([]Divergence, len(r.Divergences)),
	}
	for i, d := range r.Divergences {
		out.Divergences[i] = Divergence{
			PlayerID: string(d.PlayerID),
			Name:     d.Name,
			Stored:   d.Stored,
			Replayed: d.Replayed,
		}
	}
	return out
}
