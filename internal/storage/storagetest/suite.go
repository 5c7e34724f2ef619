// Package storagetest holds the behavioural suite every storage backend must pass.
package storagetest

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/storage"
)

// Suite exercises a storage.Storage implementation. Backends embed it and
// set NewStorage, which is called before every test.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
	T0      time.Time
}

var errAbort = errors.New("abort")

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
	s.T0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
}

func (s *Suite) TearDownTest() {
	if s.Storage != nil {
		_ = s.Storage.Close()
	}
}

// Helpers

func (s *Suite) atomically(fn func(tx storage.Tx) error) {
	s.Require().NoError(s.Storage.Atomically(s.Ctx, fn))
}

func (s *Suite) AddPlayer(id model.PlayerID, name string) *model.Player {
	p := &model.Player{ID: id, Name: name, CurrentElo: 1200, CreatedAt: s.T0}
	s.atomically(func(tx storage.Tx) error {
		return tx.CreatePlayer(s.Ctx, p)
	})
	return p
}

func (s *Suite) AddMatch(id model.MatchID, a, b model.PlayerID, o model.Outcome, at time.Time) *model.Match {
	m := &model.Match{ID: id, PlayerA: a, PlayerB: b, Outcome: o, PlayedAt: at}
	s.atomically(func(tx storage.Tx) error {
		return tx.CreateMatch(s.Ctx, m)
	})
	return m
}

func matchIDs(matches []*model.Match) []model.MatchID {
	ids := make([]model.MatchID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}

// Player tests

func (s *Suite) TestCreateAndGetPlayer() {
	s.AddPlayer("p1", "Alice")

	p, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), p.ID)
	s.Equal("Alice", p.Name)
	s.Equal(1200, p.CurrentElo)
	s.True(s.T0.Equal(p.CreatedAt), "created_at %v", p.CreatedAt)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestListPlayersOrderedByNameThenID() {
	s.AddPlayer("p3", "Carol")
	s.AddPlayer("p2", "Alice")
	s.AddPlayer("p1", "Alice")

	players, err := s.Storage.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal(model.PlayerID("p1"), players[0].ID)
	s.Equal(model.PlayerID("p2"), players[1].ID)
	s.Equal(model.PlayerID("p3"), players[2].ID)
}

func (s *Suite) TestListPlayersEmpty() {
	players, err := s.Storage.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *Suite) TestUpdateRatings() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")

	s.atomically(func(tx storage.Tx) error {
		return tx.UpdateRatings(s.Ctx, map[model.PlayerID]int{"p1": 1248, "p2": 1152})
	})

	p1, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1248, p1.CurrentElo)
	s.Equal("Alice", p1.Name)
	p2, err := s.Storage.GetPlayer(s.Ctx, "p2")
	s.Require().NoError(err)
	s.Equal(1152, p2.CurrentElo)
}

func (s *Suite) TestUpdateRatingsUnknownPlayerFails() {
	err := s.Storage.Atomically(s.Ctx, func(tx storage.Tx) error {
		return tx.UpdateRatings(s.Ctx, map[model.PlayerID]int{"ghost": 1300})
	})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestDeletePlayerCascadesMatches() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	s.AddPlayer("p3", "Carol")
	s.AddMatch("m1", "p1", "p2", model.OutcomeAWon, s.T0)
	s.AddMatch("m2", "p3", "p1", model.OutcomeDraw, s.T0.Add(time.Hour))
	s.AddMatch("m3", "p2", "p3", model.OutcomeBWon, s.T0.Add(2*time.Hour))

	var deleted int
	s.atomically(func(tx storage.Tx) error {
		var err error
		deleted, err = tx.DeletePlayer(s.Ctx, "p1")
		return err
	})
	s.Equal(2, deleted)

	_, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	matches, err := s.Storage.ListMatches(s.Ctx, storage.MatchQuery{})
	s.Require().NoError(err)
	s.Equal([]model.MatchID{"m3"}, matchIDs(matches))
}

func (s *Suite) TestDeletePlayerNotFound() {
	err := s.Storage.Atomically(s.Ctx, func(tx storage.Tx) error {
		_, err := tx.DeletePlayer(s.Ctx, "missing")
		return err
	})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Match tests

func (s *Suite) TestCreateAndGetMatch() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	created := s.AddMatch("m1", "p1", "p2", model.OutcomeDraw, s.T0)

	m, err := s.Storage.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchID("m1"), m.ID)
	s.Equal(created.Seq, m.Seq)
	s.Equal(model.PlayerID("p1"), m.PlayerA)
	s.Equal(model.PlayerID("p2"), m.PlayerB)
	s.Equal(model.OutcomeDraw, m.Outcome)
	s.True(s.T0.Equal(m.PlayedAt), "played_at %v", m.PlayedAt)
}

func (s *Suite) TestGetMatchNotFound() {
	_, err := s.Storage.GetMatch(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestCreateMatchAssignsIncreasingSeq() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	m1 := s.AddMatch("m1", "p1", "p2", model.OutcomeAWon, s.T0)
	m2 := s.AddMatch("m2", "p1", "p2", model.OutcomeAWon, s.T0)
	m3 := s.AddMatch("m3", "p1", "p2", model.OutcomeAWon, s.T0.Add(-time.Hour))

	s.Positive(m1.Seq)
	s.Greater(m2.Seq, m1.Seq)
	s.Greater(m3.Seq, m2.Seq)
}

func (s *Suite) TestListMatchesHistoryOrder() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	s.AddMatch("late", "p1", "p2", model.OutcomeAWon, s.T0.Add(2*time.Hour))
	s.AddMatch("tie-first", "p1", "p2", model.OutcomeAWon, s.T0.Add(time.Hour))
	s.AddMatch("tie-second", "p2", "p1", model.OutcomeDraw, s.T0.Add(time.Hour))
	s.AddMatch("early", "p1", "p2", model.OutcomeBWon, s.T0)

	matches, err := s.Storage.ListMatches(s.Ctx, storage.MatchQuery{})
	s.Require().NoError(err)
	s.Equal([]model.MatchID{"early", "tie-first", "tie-second", "late"}, matchIDs(matches))

	matches, err = s.Storage.ListMatches(s.Ctx, storage.MatchQuery{Descending: true, Limit: 3})
	s.Require().NoError(err)
	s.Equal([]model.MatchID{"late", "tie-second", "tie-first"}, matchIDs(matches))
}

func (s *Suite) TestListMatchesWindow() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	s.AddMatch("before", "p1", "p2", model.OutcomeAWon, s.T0.Add(-time.Second))
	s.AddMatch("at-start", "p1", "p2", model.OutcomeAWon, s.T0)
	s.AddMatch("inside", "p1", "p2", model.OutcomeAWon, s.T0.Add(time.Hour))
	s.AddMatch("at-end", "p1", "p2", model.OutcomeAWon, s.T0.Add(24*time.Hour))

	matches, err := s.Storage.ListMatches(s.Ctx, storage.MatchQuery{
		From: s.T0,
		To:   s.T0.Add(24 * time.Hour),
	})
	s.Require().NoError(err)
	s.Equal([]model.MatchID{"at-start", "inside"}, matchIDs(matches))
}

func (s *Suite) TestListMatchesForPlayer() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	s.AddPlayer("p3", "Carol")
	s.AddMatch("m1", "p1", "p2", model.OutcomeAWon, s.T0)
	s.AddMatch("m2", "p2", "p3", model.OutcomeAWon, s.T0.Add(time.Hour))
	s.AddMatch("m3", "p3", "p1", model.OutcomeAWon, s.T0.Add(2*time.Hour))

	matches, err := s.Storage.ListMatches(s.Ctx, storage.MatchQuery{PlayerID: "p1"})
	s.Require().NoError(err)
	s.Equal([]model.MatchID{"m1", "m3"}, matchIDs(matches))
}

func (s *Suite) TestUpdateMatchOutcome() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	created := s.AddMatch("m1", "p1", "p2", model.OutcomeAWon, s.T0)

	s.atomically(func(tx storage.Tx) error {
		return tx.UpdateMatchOutcome(s.Ctx, "m1", model.OutcomeBWon)
	})

	m, err := s.Storage.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.OutcomeBWon, m.Outcome)
	s.Equal(created.Seq, m.Seq)
	s.True(s.T0.Equal(m.PlayedAt))
}

func (s *Suite) TestUpdateMatchOutcomeNotFound() {
	err := s.Storage.Atomically(s.Ctx, func(tx storage.Tx) error {
		return tx.UpdateMatchOutcome(s.Ctx, "missing", model.OutcomeDraw)
	})
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestDeleteMatch() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	s.AddMatch("m1", "p1", "p2", model.OutcomeAWon, s.T0)

	s.atomically(func(tx storage.Tx) error {
		return tx.DeleteMatch(s.Ctx, "m1")
	})

	_, err := s.Storage.GetMatch(s.Ctx, "m1")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestDeleteMatchNotFound() {
	err := s.Storage.Atomically(s.Ctx, func(tx storage.Tx) error {
		return tx.DeleteMatch(s.Ctx, "missing")
	})
	s.ErrorIs(err, model.ErrMatchNotFound)
}

// Transaction tests

func (s *Suite) TestTxSeesItsOwnWrites() {
	s.AddPlayer("p1", "Alice")
	s.atomically(func(tx storage.Tx) error {
		if err := tx.CreatePlayer(s.Ctx, &model.Player{ID: "p2", Name: "Bob", CurrentElo: 1200, CreatedAt: s.T0}); err != nil {
			return err
		}
		if err := tx.CreateMatch(s.Ctx, &model.Match{ID: "m1", PlayerA: "p1", PlayerB: "p2", Outcome: model.OutcomeAWon, PlayedAt: s.T0}); err != nil {
			return err
		}
		if err := tx.UpdateRatings(s.Ctx, map[model.PlayerID]int{"p1": 1248, "p2": 1152}); err != nil {
			return err
		}

		p2, err := tx.GetPlayer(s.Ctx, "p2")
		s.Require().NoError(err)
		s.Equal(1152, p2.CurrentElo)

		matches, err := tx.ListMatches(s.Ctx, storage.MatchQuery{})
		s.Require().NoError(err)
		s.Equal([]model.MatchID{"m1"}, matchIDs(matches))

		players, err := tx.ListPlayers(s.Ctx)
		s.Require().NoError(err)
		s.Len(players, 2)
		return nil
	})
}

func (s *Suite) TestFailedTxLeavesNoTrace() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	s.AddMatch("m1", "p1", "p2", model.OutcomeAWon, s.T0)

	err := s.Storage.Atomically(s.Ctx, func(tx storage.Tx) error {
		if err := tx.CreatePlayer(s.Ctx, &model.Player{ID: "p3", Name: "Carol", CurrentElo: 1200, CreatedAt: s.T0}); err != nil {
			return err
		}
		if err := tx.CreateMatch(s.Ctx, &model.Match{ID: "m2", PlayerA: "p1", PlayerB: "p3", Outcome: model.OutcomeDraw, PlayedAt: s.T0}); err != nil {
			return err
		}
		if err := tx.UpdateMatchOutcome(s.Ctx, "m1", model.OutcomeBWon); err != nil {
			return err
		}
		if err := tx.UpdateRatings(s.Ctx, map[model.PlayerID]int{"p1": 1000}); err != nil {
			return err
		}
		if _, err := tx.DeletePlayer(s.Ctx, "p2"); err != nil {
			return err
		}
		return errAbort
	})
	s.ErrorIs(err, errAbort)

	_, err = s.Storage.GetPlayer(s.Ctx, "p3")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.Storage.GetMatch(s.Ctx, "m2")
	s.ErrorIs(err, model.ErrMatchNotFound)

	p1, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1200, p1.CurrentElo)
	_, err = s.Storage.GetPlayer(s.Ctx, "p2")
	s.Require().NoError(err)

	m1, err := s.Storage.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.OutcomeAWon, m1.Outcome)
}

func (s *Suite) TestReturnedValuesAreCopies() {
	s.AddPlayer("p1", "Alice")

	p, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	p.CurrentElo = 9999

	again, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1200, again.CurrentElo)
}
