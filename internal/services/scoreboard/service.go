// Package scoreboard ranks players over a time window by replaying only the
// matches inside it from the baseline rating.
package scoreboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mcoot/chessladder/internal/dependencies/clock"
	"github.com/mcoot/chessladder/internal/metrics"
	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/services/rating"
	"github.com/mcoot/chessladder/internal/storage"
)

// Period selects the scoreboard window
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodAll   Period = "all"
	PeriodRange Period = "range"
)

// ParsePeriod converts a query token to a Period; empty means week
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodWeek, nil
	case PeriodWeek, PeriodAll, PeriodRange:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", model.ErrInvalidPeriod, s)
}

// Query selects a scoreboard window.
// Week uses Date (default now); Range uses From and To, where a zero bound is open.
type Query struct {
	Period Period
	Date   time.Time
	From   time.Time
	To     time.Time
}

// Entry is one ranked row
type Entry struct {
	Rank         int
	PlayerID     model.PlayerID
	Name         string
	Rating       int // replayed inside the window from the baseline
	Wins         int
	Losses       int
	Draws        int
	GamesPlayed  int
	GamesAsWhite int
	GamesAsBlack int
}

// Active reports whether the player played inside the window
func (e Entry) Active() bool {
	return e.GamesPlayed > 0
}

// Scoreboard is a ranked window of the ladder
type Scoreboard struct {
	Period  Period
	From    time.Time // zero when unbounded
	To      time.Time // zero when unbounded
	Matches int
	Entries []Entry
}

// Leader returns the top active entry, or nil if nobody played
func (b *Scoreboard) Leader() *Entry {
	if len(b.Entries) == 0 || !b.Entries[0].Active() {
		return nil
	}
	return &b.Entries[0]
}

// Service computes scoreboards
type Service struct {
	storage  storage.Reader
	engine   rating.Engine
	clock    clock.Clock
	location *time.Location
}

// New creates a scoreboard Service. Week boundaries are computed in loc.
func New(storage storage.Reader, engine rating.Engine, clock clock.Clock, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		storage:  storage,
		engine:   engine,
		clock:    clock,
		location: loc,
	}
}

// Location returns the zone used for week boundaries
func (s *Service) Location() *time.Location {
	return s.location
}

// WeekBounds returns [Monday 00:00, next Monday 00:00) of the week containing t in loc
func WeekBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day()-daysSinceMonday, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 7)
}

// DayBounds returns [00:00, next 00:00) of the day containing t in loc
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func (s *Service) window(q Query) (Period, time.Time, time.Time, error) {
	switch q.Period {
	case "", PeriodWeek:
		date := q.Date
		if date.IsZero() {
			date = s.clock.Now()
		}
		from, to := WeekBounds(date, s.location)
		return PeriodWeek, from, to, nil
	case PeriodAll:
		return PeriodAll, time.Time{}, time.Time{}, nil
	case PeriodRange:
		if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
			return "", time.Time{}, time.Time{}, fmt.Errorf("%w: from must be before to", model.ErrInvalidPeriod)
		}
		return PeriodRange, q.From, q.To, nil
	}
	return "", time.Time{}, time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidPeriod, q.Period)
}

// Get computes the scoreboard for q
func (s *Service) Get(ctx context.Context, q Query) (*Scoreboard, error) {
	start := time.Now()
	defer func() {
		metrics.ViewDuration.WithLabelValues("scoreboard").Observe(time.Since(start).Seconds())
	}()

	period, from, to, err := s.window(q)
	if err != nil {
		return nil, err
	}

	players, err := s.storage.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := s.storage.ListMatches(ctx, storage.MatchQuery{From: from, To: to})
	if err != nil {
		return nil, err
	}

	ids := make([]model.PlayerID, len(players))
	entries := make(map[model.PlayerID]*Entry, len(players))
	for i, p := range players {
		ids[i] = p.ID
		entries[p.ID] = &Entry{PlayerID: p.ID, Name: p.Name}
	}

	ratings, err := s.engine.Replay(ids, matches, func(step rating.Step) {
		m := step.Match
		a, b := entries[m.PlayerA], entries[m.PlayerB]
		if a == nil || b == nil {
			return
		}
		a.GamesPlayed++
		a.GamesAsWhite++
		b.GamesPlayed++
		b.GamesAsBlack++
		switch m.Outcome {
		case model.OutcomeAWon:
			a.Wins++
			b.Losses++
		case model.OutcomeBWon:
			b.Wins++
			a.Losses++
		case model.OutcomeDraw:
			a.Draws++
			b.Draws++
		}
	})
	if err != nil {
		return nil, err
	}

	board := &Scoreboard{
		Period:  period,
		From:    from,
		To:      to,
		Matches: len(matches),
		Entries: make([]Entry, 0, len(entries)),
	}
	for _, id := range ids {
		e := entries[id]
		e.Rating = ratings.Of(id)
		board.Entries = append(board.Entries, *e)
	}
	Rank(board.Entries)
	return board, nil
}

// Rank sorts entries (active first, then rating descending, name, ID)
// and assigns 1-based positions
func Rank(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Active() != b.Active() {
			return a.Active()
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.PlayerID < b.PlayerID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
