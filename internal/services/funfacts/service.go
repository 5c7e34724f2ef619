// Package funfacts produces a random piece of trivia about the ladder.
package funfacts

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/chessladder/internal/dependencies/clock"
	"github.com/mcoot/chessladder/internal/dependencies/random"
	"github.com/mcoot/chessladder/internal/metrics"
	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/storage"
)

// Kind identifies which generator produced a fact
type Kind string

const (
	KindWinRate     Kind = "win_rate"
	KindColour      Kind = "colour"
	KindKryptonite  Kind = "kryptonite"
	KindDeadHeat    Kind = "dead_heat"
	KindDrought     Kind = "drought"
	KindWinStreak   Kind = "win_streak"
	KindLossStreak  Kind = "loss_streak"
	KindUnbeaten    Kind = "unbeaten"
	KindBusyDay     Kind = "busy_day"
	KindDrawish     Kind = "drawish"
	KindUpset       Kind = "upset"
	KindMilestone   Kind = "milestone"
	KindNothing     Kind = "nothing"
	KindNotEnough   Kind = "not_enough_data"
)

const (
	textNothing       = "Nothing special is happening on the ladder right now."
	textNotEnoughData = "Not enough games yet. Play some chess!"
)

// Fact is one generated piece of trivia
type Fact struct {
	Kind Kind
	Text string
}

// Fallback reports whether no generator applied
func (f Fact) Fallback() bool {
	return f.Kind == KindNothing || f.Kind == KindNotEnough
}

// Service generates fun facts
type Service struct {
	storage  storage.Reader
	clock    clock.Clock
	random   random.Random
	location *time.Location
	logger   *slog.Logger
}

// New creates a fun facts Service. Days and weeks are computed in loc.
func New(storage storage.Reader, clock clock.Clock, random random.Random, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		random:   random,
		location: loc,
		logger:   logger.With(slog.String("component", "funfacts")),
	}
}

// Get returns one fact. Generators run in random order and the first that
// applies wins. Storage failures are logged and yield the neutral fallback.
func (s *Service) Get(ctx context.Context) Fact {
	start := time.Now()
	defer func() {
		metrics.ViewDuration.WithLabelValues("fun_facts").Observe(time.Since(start).Seconds())
	}()

	d, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("failed to load ladder for fun facts", slog.String("error", err.Error()))
		return Fact{Kind: KindNothing, Text: textNothing}
	}
	if len(d.players) < 2 || len(d.matches) == 0 {
		return Fact{Kind: KindNotEnough, Text: textNotEnoughData}
	}

	order := make([]generator, len(generators))
	copy(order, generators)
	random.Shuffle(s.random, len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return evaluate(d, s.random, order)
}

func (s *Service) load(ctx context.Context) (*dataset, error) {
	players, err := s.storage.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := s.storage.ListMatches(ctx, storage.MatchQuery{Descending: true})
	if err != nil {
		return nil, err
	}
	return newDataset(s.clock.Now(), s.location, players, matches), nil
}

func evaluate(d *dataset, r random.Random, order []generator) Fact {
	for _, g := range order {
		if text, ok := g.fn(d, r); ok {
			return Fact{Kind: g.kind, Text: text}
		}
	}
	return Fact{Kind: KindNothing, Text: textNothing}
}

// dataset is a read-only view of the ladder used by the generators
type dataset struct {
	now      time.Time
	location *time.Location
	players  []*model.Player
	byID     map[model.PlayerID]*model.Player
	matches  []*model.Match // newest first
	games    map[model.PlayerID][]*model.Match
}

func newDataset(now time.Time, loc *time.Location, players []*model.Player, matches []*model.Match) *dataset {
	d := &dataset{
		now:      now.In(loc),
		location: loc,
		players:  players,
		byID:     make(map[model.PlayerID]*model.Player, len(players)),
		matches:  matches,
		games:    make(map[model.PlayerID][]*model.Match, len(players)),
	}
	for _, p := range players {
		d.byID[p.ID] = p
	}
	for _, m := range matches {
		d.games[m.PlayerA] = append(d.games[m.PlayerA], m)
		d.games[m.PlayerB] = append(d.games[m.PlayerB], m)
	}
	return d
}

// startOfDay returns local midnight of the current day
func (d *dataset) startOfDay() time.Time {
	return time.Date(d.now.Year(), d.now.Month(), d.now.Day(), 0, 0, 0, 0, d.location)
}

// startOfWeek returns local Monday midnight of the current week
func (d *dataset) startOfWeek() time.Time {
	daysSinceMonday := (int(d.now.Weekday()) + 6) % 7
	return time.Date(d.now.Year(), d.now.Month(), d.now.Day()-daysSinceMonday, 0, 0, 0, 0, d.location)
}

// since returns matches played at or after t, newest first
func since(matches []*model.Match, t time.Time) []*model.Match {
	var out []*model.Match
	for _, m := range matches {
		if m.PlayedAt.Before(t) {
			break
		}
		out = append(out, m)
	}
	return out
}

func pick[T any](r random.Random, xs []T) T {
	return xs[r.Intn(len(xs))]
}
