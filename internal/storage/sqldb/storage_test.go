package sqldb

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/storage"
	"github.com/mcoot/chessladder/internal/storage/storagetest"
)

var dbCounter atomic.Int64

// newTestStorage opens an isolated in-memory SQLite database
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	cfg := DefaultConfig()
	cfg.DSN = fmt.Sprintf("file:ladder_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &StorageSuite{
		Suite: storagetest.Suite{
			NewStorage: func() storage.Storage { return newTestStorage(t) },
		},
	})
}

func (s *StorageSuite) TestMigrateIsIdempotent() {
	db := s.Storage.(*Storage).db
	s.Require().NoError(Migrate(db))
	s.Require().NoError(Migrate(db))
	s.True(db.Migrator().HasTable(&playerRecord{}))
	s.True(db.Migrator().HasTable(&matchRecord{}))
}

func (s *StorageSuite) TestDuplicateMatchIDRollsBack() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")
	s.AddMatch("m1", "p1", "p2", model.OutcomeAWon, s.T0)

	err := s.Storage.Atomically(s.Ctx, func(tx storage.Tx) error {
		if err := tx.UpdateRatings(s.Ctx, map[model.PlayerID]int{"p1": 1300}); err != nil {
			return err
		}
		return tx.CreateMatch(s.Ctx, &model.Match{
			ID: "m1", PlayerA: "p2", PlayerB: "p1", Outcome: model.OutcomeDraw, PlayedAt: s.T0,
		})
	})
	s.Error(err)

	p1, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1200, p1.CurrentElo)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(Config{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
}
