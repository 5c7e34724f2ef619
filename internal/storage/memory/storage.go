package memory

import (
	"context"
	"sync"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Transactions work on a copy of the state that replaces it on commit.
type Storage struct {
	mu    sync.RWMutex
	state *state
}

type state struct {
	players map[model.PlayerID]*model.Player
	matches map[model.MatchID]*model.Match
	seq     int64
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		state: &state{
			players: make(map[model.PlayerID]*model.Player),
			matches: make(map[model.MatchID]*model.Match),
		},
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (st *state) clone() *state {
	c := &state{
		players: make(map[model.PlayerID]*model.Player, len(st.players)),
		matches: make(map[model.MatchID]*model.Match, len(st.matches)),
		seq:     st.seq,
	}
	// Values are never mutated in place, so sharing pointers is safe
	for k, v := range st.players {
		c.players[k] = v
	}
	for k, v := range st.matches {
		c.matches[k] = v
	}
	return c
}

// Atomically runs fn against a private copy of the state. fn must only use
// tx; calling back into the Storage from fn deadlocks.
func (s *Storage) Atomically(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{state: s.state.clone()}
	if err := fn(t); err != nil {
		return err
	}
	s.state = t.state
	return nil
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Read operations. A committed state is never mutated, so readers work on
// the snapshot without holding the lock.

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.snapshot().getPlayer(id)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	return s.snapshot().listPlayers(), nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return s.snapshot().getMatch(id)
}

func (s *Storage) ListMatches(ctx context.Context, q storage.MatchQuery) ([]*model.Match, error) {
	return s.snapshot().listMatches(q), nil
}

func (st *state) getPlayer(id model.PlayerID) (*model.Player, error) {
	p, ok := st.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return p.Clone(), nil
}

func (st *state) listPlayers() []*model.Player {
	players := make([]*model.Player, 0, len(st.players))
	for _, p := range st.players {
		players = append(players, p.Clone())
	}
	storage.SortPlayers(players)
	return players
}

func (st *state) getMatch(id model.MatchID) (*model.Match, error) {
	m, ok := st.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (st *state) listMatches(q storage.MatchQuery) []*model.Match {
	matches := make([]*model.Match, 0, len(st.matches))
	for _, m := range st.matches {
		if q.Matches(m) {
			matches = append(matches, m.Clone())
		}
	}
	return storage.ApplyQuery(matches, q)
}

// tx is a write transaction over a copied state
type tx struct {
	state *state
}

var _ storage.Tx = (*tx)(nil)

func (t *tx) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return t.state.getPlayer(id)
}

func (t *tx) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	return t.state.listPlayers(), nil
}

func (t *tx) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return t.state.getMatch(id)
}

func (t *tx) ListMatches(ctx context.Context, q storage.MatchQuery) ([]*model.Match, error) {
	return t.state.listMatches(q), nil
}

func (t *tx) CreatePlayer(ctx context.Context, player *model.Player) error {
	t.state.players[player.ID] = player.Clone()
	return nil
}

func (t *tx) DeletePlayer(ctx context.Context, id model.PlayerID) (int, error) {
	if _, ok := t.state.players[id]; !ok {
		return 0, model.ErrPlayerNotFound
	}
	deleted := 0
	for mid, m := range t.state.matches {
		if m.Involves(id) {
			delete(t.state.matches, mid)
			deleted++
		}
	}
	delete(t.state.players, id)
	return deleted, nil
}

func (t *tx) CreateMatch(ctx context.Context, match *model.Match) error {
	t.state.seq++
	match.Seq = t.state.seq
	t.state.matches[match.ID] = match.Clone()
	return nil
}

func (t *tx) UpdateMatchOutcome(ctx context.Context, id model.MatchID, outcome model.Outcome) error {
	m, ok := t.state.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	updated := m.Clone()
	updated.Outcome = outcome
	t.state.matches[id] = updated
	return nil
}

func (t *tx) DeleteMatch(ctx context.Context, id model.MatchID) error {
	if _, ok := t.state.matches[id]; !ok {
		return model.ErrMatchNotFound
	}
	delete(t.state.matches, id)
	return nil
}

func (t *tx) UpdateRatings(ctx context.Context, ratings map[model.PlayerID]int) error {
	for id, elo := range ratings {
		p, ok := t.state.players[id]
		if !ok {
			return model.ErrPlayerNotFound
		}
		updated := p.Clone()
		updated.CurrentElo = elo
		t.state.players[id] = updated
	}
	return nil
}
