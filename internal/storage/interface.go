package storage

import (
	"context"
	"sort"
	"time"

	"github.com/mcoot/chessladder/internal/model"
)

// MatchQuery filters and orders a match listing.
// Zero bounds are open; From is inclusive and To is exclusive.
type MatchQuery struct {
	From     time.Time
	To       time.Time
	PlayerID model.PlayerID // only matches involving this player
	Limit    int            // 0 for no limit

	// Descending returns newest first; otherwise history order (PlayedAt, Seq)
	Descending bool
}

// Matches reports whether m satisfies the query filters
func (q MatchQuery) Matches(m *model.Match) bool {
	if !q.From.IsZero() && m.PlayedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !m.PlayedAt.Before(q.To) {
		return false
	}
	if q.PlayerID != "" && !m.Involves(q.PlayerID) {
		return false
	}
	return true
}

// Reader defines the read operations shared by storage and transactions
type Reader interface {
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	// ListPlayers returns players ordered by name, then ID
	ListPlayers(ctx context.Context) ([]*model.Player, error)

	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	ListMatches(ctx context.Context, q MatchQuery) ([]*model.Match, error)
}

// Tx is a unit of work. Its writes become visible only when the function
// passed to Storage.Atomically returns nil.
type Tx interface {
	Reader

	CreatePlayer(ctx context.Context, player *model.Player) error
	// DeletePlayer removes the player and every match referencing it
	DeletePlayer(ctx context.Context, id model.PlayerID) (deletedMatches int, err error)

	// CreateMatch assigns match.Seq before persisting
	CreateMatch(ctx context.Context, match *model.Match) error
	UpdateMatchOutcome(ctx context.Context, id model.MatchID, outcome model.Outcome) error
	DeleteMatch(ctx context.Context, id model.MatchID) error

	// UpdateRatings overwrites CurrentElo for each listed player
	UpdateRatings(ctx context.Context, ratings map[model.PlayerID]int) error
}

// Storage defines the interface for ladder persistence
type Storage interface {
	Reader

	// Atomically runs fn in a transaction, committing if it returns nil
	// and discarding every write otherwise.
	Atomically(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// SortPlayers orders players by name, then ID
func SortPlayers(players []*model.Player) {
	sort.Slice(players, func(i, j int) bool {
		if players[i].Name != players[j].Name {
			return players[i].Name < players[j].Name
		}
		return players[i].ID < players[j].ID
	})
}

// ApplyQuery orders, then limits, an unordered set of matches that already
// satisfy q's filters. Backends without native ordering share it.
func ApplyQuery(matches []*model.Match, q MatchQuery) []*model.Match {
	model.SortHistory(matches)
	if q.Descending {
		for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
			matches[i], matches[j] = matches[j], matches[i]
		}
	}
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches
}
