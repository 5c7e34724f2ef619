package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/storage"
)

// ErrTxConflict is returned when a transaction keeps losing the optimistic race
var ErrTxConflict = errors.New("redis transaction conflict: retries exhausted")

// Storage is a Redis-backed implementation of the storage interface.
// Players and matches live in two hashes; transactions WATCH them, apply
// writes to a local copy and commit the difference in a MULTI block.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Read operations

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return getPlayer(ctx, s.client, id)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	players, err := loadPlayers(ctx, s.client)
	if err != nil {
		return nil, err
	}
	return sortedPlayers(players), nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data, err := s.client.HGet(ctx, matchesKey(), string(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}
	return decodeMatch(data)
}

func (s *Storage) ListMatches(ctx context.Context, q storage.MatchQuery) ([]*model.Match, error) {
	matches, err := loadMatches(ctx, s.client)
	if err != nil {
		return nil, err
	}
	return filterMatches(matches, q), nil
}

// Transactions

func (s *Storage) Atomically(ctx context.Context, fn func(tx storage.Tx) error) error {
	for attempt := 0; attempt < s.cfg.MaxTxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			t, err := load(ctx, rtx)
			if err != nil {
				return err
			}
			if err := fn(t); err != nil {
				return err
			}
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				return t.flush(ctx, pipe)
			})
			return err
		}, watchedKeys()...)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxConflict
}

// hashReader is the subset of commands shared by *redis.Client and *redis.Tx
type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func getPlayer(ctx context.Context, c hashReader, id model.PlayerID) (*model.Player, error) {
	data, err := c.HGet(ctx, playersKey(), string(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func loadPlayers(ctx context.Context, c hashReader) (map[model.PlayerID]*model.Player, error) {
	raw, err := c.HGetAll(ctx, playersKey()).Result()
	if err != nil {
		return nil, err
	}
	players := make(map[model.PlayerID]*model.Player, len(raw))
	for id, data := range raw {
		var player model.Player
		if err := json.Unmarshal([]byte(data), &player); err != nil {
			return nil, fmt.Errorf("decode player %s: %w", id, err)
		}
		players[model.PlayerID(id)] = &player
	}
	return players, nil
}

func loadMatches(ctx context.Context, c hashReader) (map[model.MatchID]*model.Match, error) {
	raw, err := c.HGetAll(ctx, matchesKey()).Result()
	if err != nil {
		return nil, err
	}
	matches := make(map[model.MatchID]*model.Match, len(raw))
	for id, data := range raw {
		m, err := decodeMatch([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("decode match %s: %w", id, err)
		}
		matches[model.MatchID(id)] = m
	}
	return matches, nil
}

func decodeMatch(data []byte) (*model.Match, error) {
	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func sortedPlayers(players map[model.PlayerID]*model.Player) []*model.Player {
	out := make([]*model.Player, 0, len(players))
	for _, p := range players {
		out = append(out, p.Clone())
	}
	storage.SortPlayers(out)
	return out
}

func filterMatches(matches map[model.MatchID]*model.Match, q storage.MatchQuery) []*model.Match {
	out := make([]*model.Match, 0, len(matches))
	for _, m := range matches {
		if q.Matches(m) {
			out = append(out, m.Clone())
		}
	}
	return storage.ApplyQuery(out, q)
}
