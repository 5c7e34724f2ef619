package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/storage"
)

var (
	playersBucket = []byte("players")
	matchesBucket = []byte("matches")
)

// Config holds Bolt file settings
type Config struct {
	Path string

	// Timeout bounds the wait for the file lock held by another process
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for a local ladder file
func DefaultConfig() Config {
	return Config{
		Path:    "ladder.bolt",
		Timeout: time.Second,
	}
}

// Storage is an embedded key/value implementation of the storage interface.
// Each entity is stored as JSON under its ID; the matches bucket sequence
// provides insertion order.
type Storage struct {
	db *bolt.DB
}

// New opens (or creates) the Bolt file and its buckets
func New(cfg Config) (*Storage, error) {
	db, err := bolt.Open(cfg.Path, 0600, &bolt.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}

	err = db.Update(func(btx *bolt.Tx) error {
		for _, name := range [][]byte{playersBucket, matchesBucket} {
			if _, err := btx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close releases the file lock
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Atomically(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&tx{btx: btx})
	})
}

// view runs a read against a read-only Bolt transaction
func (s *Storage) view(fn func(r *tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&tx{btx: btx})
	})
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var p *model.Player
	err := s.view(func(r *tx) error {
		var err error
		p, err = r.GetPlayer(ctx, id)
		return err
	})
	return p, err
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	var players []*model.Player
	err := s.view(func(r *tx) error {
		var err error
		players, err = r.ListPlayers(ctx)
		return err
	})
	return players, err
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	var m *model.Match
	err := s.view(func(r *tx) error {
		var err error
		m, err = r.GetMatch(ctx, id)
		return err
	})
	return m, err
}

func (s *Storage) ListMatches(ctx context.Context, q storage.MatchQuery) ([]*model.Match, error) {
	var matches []*model.Match
	err := s.view(func(r *tx) error {
		var err error
		matches, err = r.ListMatches(ctx, q)
		return err
	})
	return matches, err
}

// tx wraps a Bolt transaction. Read-only transactions only use the Reader methods.
type tx struct {
	btx *bolt.Tx
}

var _ storage.Tx = (*tx)(nil)

func (t *tx) players() *bolt.Bucket { return t.btx.Bucket(playersBucket) }
func (t *tx) matches() *bolt.Bucket { return t.btx.Bucket(matchesBucket) }

func (t *tx) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data := t.players().Get([]byte(id))
	if data == nil {
		return nil, model.ErrPlayerNotFound
	}
	var p model.Player
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode player %s: %w", id, err)
	}
	return &p, nil
}

func (t *tx) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	var players []*model.Player
	err := t.players().ForEach(func(k, v []byte) error {
		var p model.Player
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("decode player %s: %w", k, err)
		}
		players = append(players, &p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	storage.SortPlayers(players)
	return players, nil
}

func (t *tx) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data := t.matches().Get([]byte(id))
	if data == nil {
		return nil, model.ErrMatchNotFound
	}
	var m model.Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", id, err)
	}
	return &m, nil
}

func (t *tx) ListMatches(ctx context.Context, q storage.MatchQuery) ([]*model.Match, error) {
	var matches []*model.Match
	err := t.matches().ForEach(func(k, v []byte) error {
		var m model.Match
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("decode match %s: %w", k, err)
		}
		if q.Matches(&m) {
			matches = append(matches, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return storage.ApplyQuery(matches, q), nil
}

func (t *tx) putPlayer(p *model.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return t.players().Put([]byte(p.ID), data)
}

func (t *tx) putMatch(m *model.Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return t.matches().Put([]byte(m.ID), data)
}

func (t *tx) CreatePlayer(ctx context.Context, player *model.Player) error {
	return t.putPlayer(player)
}

func (t *tx) DeletePlayer(ctx context.Context, id model.PlayerID) (int, error) {
	if _, err := t.GetPlayer(ctx, id); err != nil {
		return 0, err
	}

	// Collect first; Bolt cursors must not be mutated during ForEach
	var doomed [][]byte
	err := t.matches().ForEach(func(k, v []byte) error {
		var m model.Match
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("decode match %s: %w", k, err)
		}
		if m.Involves(id) {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, k := range doomed {
		if err := t.matches().Delete(k); err != nil {
			return 0, err
		}
	}
	if err := t.players().Delete([]byte(id)); err != nil {
		return 0, err
	}
	return len(doomed), nil
}

func (t *tx) CreateMatch(ctx context.Context, match *model.Match) error {
	seq, err := t.matches().NextSequence()
	if err != nil {
		return err
	}
	match.Seq = int64(seq)
	return t.putMatch(match)
}

func (t *tx) UpdateMatchOutcome(ctx context.Context, id model.MatchID, outcome model.Outcome) error {
	m, err := t.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	m.Outcome = outcome
	return t.putMatch(m)
}

func (t *tx) DeleteMatch(ctx context.Context, id model.MatchID) error {
	if t.matches().Get([]byte(id)) == nil {
		return model.ErrMatchNotFound
	}
	return t.matches().Delete([]byte(id))
}

func (t *tx) UpdateRatings(ctx context.Context, ratings map[model.PlayerID]int) error {
	for id, elo := range ratings {
		p, err := t.GetPlayer(ctx, id)
		if err != nil {
			return err
		}
		p.CurrentElo = elo
		if err := t.putPlayer(p); err != nil {
			return err
		}
	}
	return nil
}
