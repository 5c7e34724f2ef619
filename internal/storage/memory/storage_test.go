package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/storage"
	"github.com/mcoot/chessladder/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &StorageSuite{
		Suite: storagetest.Suite{
			NewStorage: func() storage.Storage { return New() },
		},
	})
}

func (s *StorageSuite) TestCancelledContextAbortsTx() {
	ctx, cancel := context.WithCancel(s.Ctx)
	cancel()

	called := false
	err := s.Storage.Atomically(ctx, func(tx storage.Tx) error {
		called = true
		return nil
	})
	s.ErrorIs(err, context.Canceled)
	s.False(called)
}

func (s *StorageSuite) TestReadersDoNotSeeUncommittedWrites() {
	s.AddPlayer("p1", "Alice")
	mem := s.Storage.(*Storage)

	// Readers use the committed snapshot, so an open tx is invisible to them
	before := mem.snapshot()
	err := mem.Atomically(s.Ctx, func(tx storage.Tx) error {
		return tx.UpdateRatings(s.Ctx, map[model.PlayerID]int{"p1": 1500})
	})
	s.Require().NoError(err)

	p, err := before.getPlayer("p1")
	s.Require().NoError(err)
	s.Equal(1200, p.CurrentElo)

	p, err = mem.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1500, p.CurrentElo)
}

func (s *StorageSuite) TestConcurrentTransactionsSerialise() {
	s.AddPlayer("p1", "Alice")
	s.AddPlayer("p2", "Bob")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Storage.Atomically(s.Ctx, func(tx storage.Tx) error {
				return tx.CreateMatch(s.Ctx, &model.Match{
					ID:       model.MatchID(fmt.Sprintf("m%02d", i)),
					PlayerA:  "p1",
					PlayerB:  "p2",
					Outcome:  model.OutcomeDraw,
					PlayedAt: s.T0,
				})
			})
		}()
	}
	wg.Wait()

	matches, err := s.Storage.ListMatches(s.Ctx, storage.MatchQuery{})
	s.Require().NoError(err)
	s.Len(matches, 20)
	for i, m := range matches {
		s.Equal(int64(i+1), m.Seq)
	}
}
