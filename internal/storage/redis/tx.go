package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/storage"
)

// tx buffers writes against a snapshot read under WATCH
type tx struct {
	players map[model.PlayerID]*model.Player
	matches map[model.MatchID]*model.Match
	seq     int64

	dirtyPlayers   map[model.PlayerID]bool
	deletedPlayers map[model.PlayerID]bool
	dirtyMatches   map[model.MatchID]bool
	deletedMatches map[model.MatchID]bool
	seqChanged     bool
}

var _ storage.Tx = (*tx)(nil)

func load(ctx context.Context, rtx *redis.Tx) (*tx, error) {
	players, err := loadPlayers(ctx, rtx)
	if err != nil {
		return nil, err
	}
	matches, err := loadMatches(ctx, rtx)
	if err != nil {
		return nil, err
	}
	seq, err := rtx.Get(ctx, matchSeqKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	return &tx{
		players:        players,
		matches:        matches,
		seq:            seq,
		dirtyPlayers:   make(map[model.PlayerID]bool),
		deletedPlayers: make(map[model.PlayerID]bool),
		dirtyMatches:   make(map[model.MatchID]bool),
		deletedMatches: make(map[model.MatchID]bool),
	}, nil
}

// flush queues the buffered writes on a MULTI pipeline
func (t *tx) flush(ctx context.Context, pipe redis.Pipeliner) error {
	for id := range t.deletedPlayers {
		pipe.HDel(ctx, playersKey(), string(id))
	}
	for id := range t.dirtyPlayers {
		data, err := json.Marshal(t.players[id])
		if err != nil {
			return err
		}
		pipe.HSet(ctx, playersKey(), string(id), data)
	}
	for id := range t.deletedMatches {
		pipe.HDel(ctx, matchesKey(), string(id))
	}
	for id := range t.dirtyMatches {
		data, err := json.Marshal(t.matches[id])
		if err != nil {
			return err
		}
		pipe.HSet(ctx, matchesKey(), string(id), data)
	}
	if t.seqChanged {
		pipe.Set(ctx, matchSeqKey(), t.seq, 0)
	}
	pipe.Incr(ctx, revisionKey())
	return nil
}

func (t *tx) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	p, ok := t.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return p.Clone(), nil
}

func (t *tx) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	return sortedPlayers(t.players), nil
}

func (t *tx) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	m, ok := t.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (t *tx) ListMatches(ctx context.Context, q storage.MatchQuery) ([]*model.Match, error) {
	return filterMatches(t.matches, q), nil
}

func (t *tx) putPlayer(p *model.Player) {
	t.players[p.ID] = p
	t.dirtyPlayers[p.ID] = true
	delete(t.deletedPlayers, p.ID)
}

func (t *tx) putMatch(m *model.Match) {
	t.matches[m.ID] = m
	t.dirtyMatches[m.ID] = true
	delete(t.deletedMatches, m.ID)
}

func (t *tx) removeMatch(id model.MatchID) {
	delete(t.matches, id)
	delete(t.dirtyMatches, id)
	t.deletedMatches[id] = true
}

func (t *tx) CreatePlayer(ctx context.Context, player *model.Player) error {
	t.putPlayer(player.Clone())
	return nil
}

func (t *tx) DeletePlayer(ctx context.Context, id model.PlayerID) (int, error) {
	if _, ok := t.players[id]; !ok {
		return 0, model.ErrPlayerNotFound
	}
	deleted := 0
	for mid, m := range t.matches {
		if m.Involves(id) {
			t.removeMatch(mid)
			deleted++
		}
	}
	delete(t.players, id)
	delete(t.dirtyPlayers, id)
	t.deletedPlayers[id] = true
	return deleted, nil
}

func (t *tx) CreateMatch(ctx context.Context, match *model.Match) error {
	t.seq++
	t.seqChanged = true
	match.Seq = t.seq
	t.putMatch(match.Clone())
	return nil
}

func (t *tx) UpdateMatchOutcome(ctx context.Context, id model.MatchID, outcome model.Outcome) error {
	m, ok := t.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	updated := m.Clone()
	updated.Outcome = outcome
	t.putMatch(updated)
	return nil
}

func (t *tx) DeleteMatch(ctx context.Context, id model.MatchID) error {
	if _, ok := t.matches[id]; !ok {
		return model.ErrMatchNotFound
	}
	t.removeMatch(id)
	return nil
}

func (t *tx) UpdateRatings(ctx context.Context, ratings map[model.PlayerID]int) error {
	for id, elo := range ratings {
		p, ok := t.players[id]
		if !ok {
			return model.ErrPlayerNotFound
		}
		updated := p.Clone()
		updated.CurrentElo = elo
		t.putPlayer(updated)
	}
	return nil
}
