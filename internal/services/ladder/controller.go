// Package ladder owns every write to the ladder and keeps stored ratings
// equal to a replay of the match history.
package ladder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/chessladder/internal/dependencies/clock"
	"github.com/mcoot/chessladder/internal/dependencies/random"
	"github.com/mcoot/chessladder/internal/metrics"
	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/services/rating"
	"github.com/mcoot/chessladder/internal/storage"
)

const (
	// DefaultRecentLimit is the number of matches returned by ListRecentMatches
	DefaultRecentLimit = 50

	// MaxNameLength bounds player names
	MaxNameLength = 64
)

var (
	// ErrRecalculation wraps any failure of a full replay; nothing was written
	ErrRecalculation = errors.New("rating recalculation failed")

	// ErrDestinationNotEmpty is returned when importing into a ladder that has players
	ErrDestinationNotEmpty = errors.New("destination ladder is not empty")
)

// Publisher receives committed ladder changes
type Publisher interface {
	Publish(event model.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(model.Event) {}

// Controller serialises ladder mutations. One controller must own each
// dataset; its mutex makes every mutation and the replay that follows it a
// single step.
type Controller struct {
	mu sync.Mutex

	storage     storage.Storage
	engine      rating.Engine
	clock       clock.Clock
	random      random.Random
	publisher   Publisher
	logger      *slog.Logger
	recentLimit int
}

// NewController creates a new ladder Controller. publisher may be nil.
func NewController(
	storage storage.Storage,
	engine rating.Engine,
	clock clock.Clock,
	random random.Random,
	publisher Publisher,
	logger *slog.Logger,
) *Controller {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Controller{
		storage:     storage,
		engine:      engine,
		clock:       clock,
		random:      random,
		publisher:   publisher,
		logger:      logger.With(slog.String("component", "ladder")),
		recentLimit: DefaultRecentLimit,
	}
}

// SetRecentLimit changes the default size of ListRecentMatches
func (c *Controller) SetRecentLimit(n int) {
	if n > 0 {
		c.recentLimit = n
	}
}

// KFactor returns the K used by the controller's engine
func (c *Controller) KFactor() int {
	return c.engine.KFactor
}

// Players

// RegisterPlayer adds a player at the baseline rating
func (c *Controller) RegisterPlayer(ctx context.Context, name string) (*model.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return nil, model.ErrInvalidName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	player := &model.Player{
		ID:         model.PlayerID(c.random.UUID()),
		Name:       name,
		CurrentElo: rating.Baseline,
		CreatedAt:  c.clock.Now(),
	}

	err := c.storage.Atomically(ctx, func(tx storage.Tx) error {
		return tx.CreatePlayer(ctx, player)
	})
	if err != nil {
		return nil, err
	}

	metrics.PlayersRegisteredTotal.Inc()
	c.logger.Info("player registered",
		slog.String("player", string(player.ID)),
		slog.String("name", player.Name))
	c.publish(model.EventPlayerRegistered, player.ID, "", nil)
	return player, nil
}

// GetPlayer retrieves a player by ID
func (c *Controller) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return c.storage.GetPlayer(ctx, id)
}

// ListPlayers returns every player ordered by name
func (c *Controller) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	return c.storage.ListPlayers(ctx)
}

// DeletePlayer removes a player and every match they played. Opponents'
// ratings are rebuilt from the remaining history in the same transaction.
func (c *Controller) DeletePlayer(ctx context.Context, id model.PlayerID) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var deleted int
	var ratings rating.Ratings
	err := c.storage.Atomically(ctx, func(tx storage.Tx) error {
		var err error
		deleted, err = tx.DeletePlayer(ctx, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return nil
		}
		ratings, err = c.replay(ctx, tx, metrics.TriggerPlayer)
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.PlayersDeletedTotal.Inc()
	c.logger.Info("player deleted",
		slog.String("player", string(id)),
		slog.Int("matches_deleted", deleted))
	c.publish(model.EventPlayerDeleted, id, "", ratings)
	return deleted, nil
}

// Matches

// RecordMatchRequest describes a match result to record
type RecordMatchRequest struct {
	PlayerA model.PlayerID
	PlayerB model.PlayerID
	Outcome string

	// PlayedAt defaults to now when zero
	PlayedAt time.Time
}

// RecordedMatch is the outcome of RecordMatch
type RecordedMatch struct {
	Match   *model.Match
	PlayerA *model.Player // after the update
	PlayerB *model.Player // after the update

	// Replayed is true when the match was back-dated and the whole
	// history was replayed instead of applying a single update
	Replayed bool
}

func (r RecordMatchRequest) validate() (model.Outcome, error) {
	if r.PlayerA == "" || r.PlayerB == "" {
		return "", model.ErrMissingPlayer
	}
	if r.PlayerA == r.PlayerB {
		return "", model.ErrSelfMatch
	}
	return model.ParseOutcome(r.Outcome)
}

// RecordMatch stores a match and updates both players' ratings in one
// transaction. A match dated before the latest recorded match triggers a
// full replay so that stored ratings stay equal to the replayed history.
func (c *Controller) RecordMatch(ctx context.Context, req RecordMatchRequest) (*RecordedMatch, error) {
	outcome, err := req.validate()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	playedAt := req.PlayedAt.Round(0).Truncate(clock.Precision)
	if playedAt.IsZero() {
		playedAt = c.clock.Now()
	}
	match := &model.Match{
		ID:       model.MatchID(c.random.UUID()),
		PlayerA:  req.PlayerA,
		PlayerB:  req.PlayerB,
		Outcome:  outcome,
		PlayedAt: playedAt,
	}

	result := &RecordedMatch{Match: match}
	var ratings rating.Ratings
	err = c.storage.Atomically(ctx, func(tx storage.Tx) error {
		a, err := tx.GetPlayer(ctx, req.PlayerA)
		if err != nil {
			return fmt.Errorf("player A %s: %w", req.PlayerA, err)
		}
		b, err := tx.GetPlayer(ctx, req.PlayerB)
		if err != nil {
			return fmt.Errorf("player B %s: %w", req.PlayerB, err)
		}

		latest, err := tx.ListMatches(ctx, storage.MatchQuery{Descending: true, Limit: 1})
		if err != nil {
			return err
		}
		result.Replayed = len(latest) > 0 && playedAt.Before(latest[0].PlayedAt)

		if err := tx.CreateMatch(ctx, match); err != nil {
			return err
		}

		if result.Replayed {
			ratings, err = c.replay(ctx, tx, metrics.TriggerBackdated)
			if err != nil {
				return err
			}
		} else {
			newA, newB := c.engine.Apply(a.CurrentElo, b.CurrentElo, outcome)
			ratings = rating.Ratings{a.ID: newA, b.ID: newB}
			if err := tx.UpdateRatings(ctx, ratings); err != nil {
				return err
			}
		}

		a.CurrentElo = ratings[a.ID]
		b.CurrentElo = ratings[b.ID]
		result.PlayerA, result.PlayerB = a, b
		return nil
	})
	if err != nil {
		return nil, err
	}

	path := metrics.PathIncremental
	if result.Replayed {
		path = metrics.PathReplay
	}
	metrics.MatchesRecordedTotal.WithLabelValues(path).Inc()
	c.logger.Info("match recorded",
		slog.String("match", string(match.ID)),
		slog.String("player_a", string(match.PlayerA)),
		slog.String("player_b", string(match.PlayerB)),
		slog.String("outcome", string(match.Outcome)),
		slog.String("path", path),
		slog.Int("elo_a", result.PlayerA.CurrentElo),
		slog.Int("elo_b", result.PlayerB.CurrentElo))
	c.publish(model.EventMatchRecorded, "", match.ID, ratings)
	return result, nil
}

// GetMatch retrieves a match by ID
func (c *Controller) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return c.storage.GetMatch(ctx, id)
}

// ListRecentMatches returns the newest matches first. limit <= 0 uses the
// configured default.
func (c *Controller) ListRecentMatches(ctx context.Context, limit int) ([]*model.Match, error) {
	if limit <= 0 {
		limit = c.recentLimit
	}
	return c.storage.ListMatches(ctx, storage.MatchQuery{Descending: true, Limit: limit})
}

// UpdateMatchOutcome changes the result of a match and replays the history
func (c *Controller) UpdateMatchOutcome(ctx context.Context, id model.MatchID, outcome string) (*model.Match, error) {
	parsed, err := model.ParseOutcome(outcome)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var updated *model.Match
	var ratings rating.Ratings
	err = c.storage.Atomically(ctx, func(tx storage.Tx) error {
		if err := tx.UpdateMatchOutcome(ctx, id, parsed); err != nil {
			return err
		}
		var err error
		if ratings, err = c.replay(ctx, tx, metrics.TriggerEdit); err != nil {
			return err
		}
		updated, err = tx.GetMatch(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.MatchesEditedTotal.Inc()
	c.logger.Info("match edited",
		slog.String("match", string(id)),
		slog.String("outcome", string(parsed)))
	c.publish(model.EventMatchEdited, "", id, ratings)
	return updated, nil
}

// DeleteMatch removes a match and replays the history
func (c *Controller) DeleteMatch(ctx context.Context, id model.MatchID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ratings rating.Ratings
	err := c.storage.Atomically(ctx, func(tx storage.Tx) error {
		if err := tx.DeleteMatch(ctx, id); err != nil {
			return err
		}
		var err error
		ratings, err = c.replay(ctx, tx, metrics.TriggerDelete)
		return err
	})
	if err != nil {
		return err
	}

	metrics.MatchesDeletedTotal.Inc()
	c.logger.Info("match deleted", slog.String("match", string(id)))
	c.publish(model.EventMatchDeleted, "", id, ratings)
	return nil
}

// Replay

// RecalculateResult summarises a forced replay
type RecalculateResult struct {
	Players int
	Matches int
	Ratings rating.Ratings
}

// Recalculate rebuilds every stored rating from the match history
func (c *Controller) Recalculate(ctx context.Context) (*RecalculateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := &RecalculateResult{}
	err := c.storage.Atomically(ctx, func(tx storage.Tx) error {
		var err error
		result.Ratings, err = c.replay(ctx, tx, metrics.TriggerManual)
		if err != nil {
			return err
		}
		result.Players = len(result.Ratings)
		matches, err := tx.ListMatches(ctx, storage.MatchQuery{})
		result.Matches = len(matches)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("ladder recalculated",
		slog.Int("players", result.Players),
		slog.Int("matches", result.Matches))
	c.publish(model.EventLadderRecomputed, "", "", result.Ratings)
	return result, nil
}

// Divergence is a player whose stored rating differs from the replay
type Divergence struct {
	PlayerID model.PlayerID
	Name     string
	Stored   int
	Replayed int
}

// VerifyResult reports whether stored ratings match the history
type VerifyResult struct {
	Players     int
	Matches     int
	Divergences []Divergence
}

// Consistent reports whether no player diverged
func (r *VerifyResult) Consistent() bool {
	return len(r.Divergences) == 0
}

// Verify replays the history without writing and reports every player
// whose stored rating disagrees
func (c *Controller) Verify(ctx context.Context) (*VerifyResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	players, err := c.storage.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := c.storage.ListMatches(ctx, storage.MatchQuery{})
	if err != nil {
		return nil, err
	}

	replayed, err := c.engine.Replay(playerIDs(players), matches, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecalculation, err)
	}

	result := &VerifyResult{Players: len(players), Matches: len(matches)}
	for _, p := range players {
		if want := replayed.Of(p.ID); want != p.CurrentElo {
			result.Divergences = append(result.Divergences, Divergence{
				PlayerID: p.ID,
				Name:     p.Name,
				Stored:   p.CurrentElo,
				Replayed: want,
			})
		}
	}
	if !result.Consistent() {
		c.logger.Warn("stored ratings diverge from history",
			slog.Int("divergent_players", len(result.Divergences)))
	}
	return result, nil
}

// ImportResult summarises a transfer into this ladder
type ImportResult struct {
	Players int
	Matches int
}

// Import copies every player and match from src into this ladder, which
// must be empty, and replays ratings. Matches keep their IDs and times and
// receive new sequence numbers in history order.
func (c *Controller) Import(ctx context.Context, src storage.Reader) (*ImportResult, error) {
	players, err := src.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source players: %w", err)
	}
	matches, err := src.ListMatches(ctx, storage.MatchQuery{})
	if err != nil {
		return nil, fmt.Errorf("read source matches: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var ratings rating.Ratings
	err = c.storage.Atomically(ctx, func(tx storage.Tx) error {
		existing, err := tx.ListPlayers(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrDestinationNotEmpty
		}
		for _, p := range players {
			if err := tx.CreatePlayer(ctx, p); err != nil {
				return fmt.Errorf("import player %s: %w", p.ID, err)
			}
		}
		for _, m := range matches {
			if err := tx.CreateMatch(ctx, m.Clone()); err != nil {
				return fmt.Errorf("import match %s: %w", m.ID, err)
			}
		}
		ratings, err = c.replay(ctx, tx, metrics.TriggerImport)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("ladder imported",
		slog.Int("players", len(players)),
		slog.Int("matches", len(matches)))
	c.publish(model.EventLadderRecomputed, "", "", ratings)
	return &ImportResult{Players: len(players), Matches: len(matches)}, nil
}

// replay rebuilds every rating inside tx and writes them in one batch
func (c *Controller) replay(ctx context.Context, tx storage.Tx, trigger string) (rating.Ratings, error) {
	start := time.Now()
	metrics.ReplaysTotal.WithLabelValues(trigger).Inc()

	ratings, matchCount, err := c.replayTx(ctx, tx)
	if err != nil {
		metrics.ReplayErrorsTotal.Inc()
		c.logger.Error("rating replay failed",
			slog.String("trigger", trigger),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrRecalculation, err)
	}

	metrics.ReplayDuration.Observe(time.Since(start).Seconds())
	metrics.ReplayedMatches.Observe(float64(matchCount))
	c.logger.Debug("rating replay complete",
		slog.String("trigger", trigger),
		slog.Int("matches", matchCount),
		slog.Duration("duration", time.Since(start)))
	return ratings, nil
}

func (c *Controller) replayTx(ctx context.Context, tx storage.Tx) (rating.Ratings, int, error) {
	players, err := tx.ListPlayers(ctx)
	if err != nil {
		return nil, 0, err
	}
	matches, err := tx.ListMatches(ctx, storage.MatchQuery{})
	if err != nil {
		return nil, 0, err
	}

	ids := playerIDs(players)
	replayed, err := c.engine.Replay(ids, matches, nil)
	if err != nil {
		return nil, 0, err
	}

	// Only registered players are written back
	ratings := make(rating.Ratings, len(ids))
	for _, id := range ids {
		ratings[id] = replayed.Of(id)
	}
	if err := tx.UpdateRatings(ctx, ratings); err != nil {
		return nil, 0, err
	}
	return ratings, len(matches), nil
}

func (c *Controller) publish(t model.EventType, player model.PlayerID, match model.MatchID, ratings rating.Ratings) {
	c.publisher.Publish(model.Event{
		Type:      t,
		Timestamp: c.clock.Now(),
		PlayerID:  player,
		MatchID:   match,
		Ratings:   ratings,
	})
}

func playerIDs(players []*model.Player) []model.PlayerID {
	ids := make([]model.PlayerID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}
