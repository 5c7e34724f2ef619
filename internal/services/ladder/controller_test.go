package ladder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessladder/internal/dependencies/mocks"
	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/services/rating"
	"github.com/mcoot/chessladder/internal/storage"
	"github.com/mcoot/chessladder/internal/storage/memory"
	"github.com/mcoot/chessladder/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(e model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

// failingRatingsStorage fails every UpdateRatings once armed
type failingRatingsStorage struct {
	*memory.Storage
	armed bool
}

type failingTx struct {
	storage.Tx
}

var errDiskFull = errors.New("disk full")

func (f *failingTx) UpdateRatings(ctx context.Context, ratings map[model.PlayerID]int) error {
	return errDiskFull
}

func (f *failingRatingsStorage) Atomically(ctx context.Context, fn func(tx storage.Tx) error) error {
	return f.Storage.Atomically(ctx, func(tx storage.Tx) error {
		if f.armed {
			return fn(&failingTx{Tx: tx})
		}
		return fn(tx)
	})
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	publisher  *recordingPublisher
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.publisher = &recordingPublisher{}
	s.controller = s.newController(s.storage)
	s.ctx = context.Background()
}

func (s *ControllerSuite) newController(store storage.Storage) *Controller {
	return NewController(store, rating.NewEngine(rating.DefaultKFactor), s.clock, s.random, s.publisher, testutil.NopLogger())
}

func (s *ControllerSuite) register(id, name string) *model.Player {
	s.random.QueueUUID(id)
	p, err := s.controller.RegisterPlayer(s.ctx, name)
	s.Require().NoError(err)
	return p
}

func (s *ControllerSuite) record(id string, a, b *model.Player, outcome model.Outcome) *RecordedMatch {
	s.random.QueueUUID(id)
	s.clock.Advance(time.Minute)
	res, err := s.controller.RecordMatch(s.ctx, RecordMatchRequest{
		PlayerA: a.ID,
		PlayerB: b.ID,
		Outcome: string(outcome),
	})
	s.Require().NoError(err)
	return res
}

func (s *ControllerSuite) elo(id model.PlayerID) int {
	p, err := s.storage.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	return p.CurrentElo
}

func (s *ControllerSuite) requireConsistent() {
	res, err := s.controller.Verify(s.ctx)
	s.Require().NoError(err)
	s.Empty(res.Divergences)
}

// RegisterPlayer tests

func (s *ControllerSuite) TestRegisterPlayerStartsAtBaseline() {
	p := s.register("alice", "  Alice  ")

	s.Equal(model.PlayerID("alice"), p.ID)
	s.Equal("Alice", p.Name)
	s.Equal(1200, p.CurrentElo)
	s.Equal(s.clock.Now(), p.CreatedAt)

	stored, err := s.controller.GetPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", stored.Name)
	s.Equal([]model.EventType{model.EventPlayerRegistered}, s.publisher.types())
}

func (s *ControllerSuite) TestRegisterPlayerRejectsBlankName() {
	_, err := s.controller.RegisterPlayer(s.ctx, "   ")
	s.ErrorIs(err, model.ErrInvalidName)

	players, err := s.controller.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

// RecordMatch tests

func (s *ControllerSuite) TestFirstWinFromBaseline() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")

	res := s.record("m1", alice, bob, model.OutcomeAWon)

	s.False(res.Replayed)
	s.Equal(1248, res.PlayerA.CurrentElo)
	s.Equal(1152, res.PlayerB.CurrentElo)
	s.Equal(1248, s.elo("alice"))
	s.Equal(1152, s.elo("bob"))
	s.Equal(model.MatchID("m1"), res.Match.ID)
	s.Equal(s.clock.Now(), res.Match.PlayedAt)
}

func (s *ControllerSuite) TestSecondMatchUsesUpdatedRatings() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")

	s.record("m1", alice, bob, model.OutcomeAWon)
	res := s.record("m2", alice, bob, model.OutcomeAWon)

	s.Equal(1283, res.PlayerA.CurrentElo)
	s.Equal(1117, res.PlayerB.CurrentElo)
	s.requireConsistent()
}

func (s *ControllerSuite) TestDrawAtEqualRatingsChangesNothing() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")

	s.record("m1", alice, bob, model.OutcomeDraw)

	s.Equal(1200, s.elo("alice"))
	s.Equal(1200, s.elo("bob"))
}

func (s *ControllerSuite) TestRecordMatchValidation() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")

	tests := []struct {
		name string
		req  RecordMatchRequest
		want error
	}{
		{"self match", RecordMatchRequest{PlayerA: alice.ID, PlayerB: alice.ID, Outcome: "A_WON"}, model.ErrSelfMatch},
		{"missing player", RecordMatchRequest{PlayerA: alice.ID, Outcome: "A_WON"}, model.ErrMissingPlayer},
		{"unknown outcome", RecordMatchRequest{PlayerA: alice.ID, PlayerB: bob.ID, Outcome: "WHITE"}, model.ErrInvalidOutcome},
		{"lowercase outcome", RecordMatchRequest{PlayerA: alice.ID, PlayerB: bob.ID, Outcome: "draw"}, model.ErrInvalidOutcome},
		{"unknown player", RecordMatchRequest{PlayerA: alice.ID, PlayerB: "ghost", Outcome: "DRAW"}, model.ErrPlayerNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.controller.RecordMatch(s.ctx, tt.req)
			s.ErrorIs(err, tt.want)
		})
	}

	matches, err := s.controller.ListRecentMatches(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(matches)
	s.Equal(1200, s.elo("alice"))
	s.Equal(1200, s.elo("bob"))
}

func (s *ControllerSuite) TestBackdatedMatchReplaysHistory() {
	a := s.register("a", "A")
	b := s.register("b", "B")
	c := s.register("c", "C")

	s.record("m1", a, b, model.OutcomeAWon)
	s.record("m2", b, c, model.OutcomeAWon)

	// Insert a match before both existing ones
	s.random.QueueUUID("m0")
	res, err := s.controller.RecordMatch(s.ctx, RecordMatchRequest{
		PlayerA:  c.ID,
		PlayerB:  a.ID,
		Outcome:  string(model.OutcomeAWon),
		PlayedAt: s.clock.Now().Add(-time.Hour),
	})
	s.Require().NoError(err)
	s.True(res.Replayed)

	// Expected values from replaying m0, m1, m2 in time order
	want, err := rating.NewEngine(rating.DefaultKFactor).Replay(
		[]model.PlayerID{"a", "b", "c"},
		[]*model.Match{
			{ID: "m0", Seq: 1, PlayerA: "c", PlayerB: "a", Outcome: model.OutcomeAWon},
			{ID: "m1", Seq: 2, PlayerA: "a", PlayerB: "b", Outcome: model.OutcomeAWon},
			{ID: "m2", Seq: 3, PlayerA: "b", PlayerB: "c", Outcome: model.OutcomeAWon},
		}, nil)
	s.Require().NoError(err)

	s.Equal(want["a"], s.elo("a"))
	s.Equal(want["b"], s.elo("b"))
	s.Equal(want["c"], s.elo("c"))
	s.Equal(want["c"], res.PlayerA.CurrentElo)
	s.Equal(want["a"], res.PlayerB.CurrentElo)
	s.requireConsistent()
}

func (s *ControllerSuite) TestMatchAtSameInstantAsLatestUsesFastPath() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	s.record("m1", alice, bob, model.OutcomeAWon)

	s.random.QueueUUID("m2")
	res, err := s.controller.RecordMatch(s.ctx, RecordMatchRequest{
		PlayerA: alice.ID, PlayerB: bob.ID, Outcome: "B_WON", PlayedAt: s.clock.Now(),
	})
	s.Require().NoError(err)
	s.False(res.Replayed)
	s.requireConsistent()
}

func (s *ControllerSuite) TestListRecentMatchesNewestFirst() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	s.record("m1", alice, bob, model.OutcomeAWon)
	s.record("m2", alice, bob, model.OutcomeDraw)
	s.record("m3", bob, alice, model.OutcomeAWon)

	matches, err := s.controller.ListRecentMatches(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(matches, 3)
	s.Equal(model.MatchID("m3"), matches[0].ID)
	s.Equal(model.MatchID("m1"), matches[2].ID)

	s.controller.SetRecentLimit(2)
	matches, err = s.controller.ListRecentMatches(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(matches, 2)

	matches, err = s.controller.ListRecentMatches(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(matches, 1)
}

// Edit and delete tests

func (s *ControllerSuite) TestEditOutcomeReplays() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	s.record("m1", alice, bob, model.OutcomeAWon)
	s.record("m2", alice, bob, model.OutcomeAWon)

	updated, err := s.controller.UpdateMatchOutcome(s.ctx, "m1", "B_WON")
	s.Require().NoError(err)
	s.Equal(model.OutcomeBWon, updated.Outcome)

	// B wins then A wins from 1152 / 1248
	newA, newB := rating.Apply(1152, 1248, model.OutcomeAWon, rating.DefaultKFactor)
	s.Equal(newA, s.elo("alice"))
	s.Equal(newB, s.elo("bob"))
	s.requireConsistent()
	s.Contains(s.publisher.types(), model.EventMatchEdited)
}

func (s *ControllerSuite) TestEditOutcomeValidation() {
	_, err := s.controller.UpdateMatchOutcome(s.ctx, "missing", "DRAW")
	s.ErrorIs(err, model.ErrMatchNotFound)

	_, err = s.controller.UpdateMatchOutcome(s.ctx, "missing", "TIE")
	s.ErrorIs(err, model.ErrInvalidOutcome)
}

func (s *ControllerSuite) TestDeleteEqualsNeverRecorded() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	carol := s.register("carol", "Carol")
	s.record("m1", alice, bob, model.OutcomeAWon)
	s.record("m2", bob, carol, model.OutcomeDraw)
	s.record("m3", carol, alice, model.OutcomeAWon)

	s.Require().NoError(s.controller.DeleteMatch(s.ctx, "m2"))

	want, err := rating.NewEngine(rating.DefaultKFactor).Replay(
		[]model.PlayerID{"alice", "bob", "carol"},
		[]*model.Match{
			{ID: "m1", Seq: 1, PlayerA: "alice", PlayerB: "bob", Outcome: model.OutcomeAWon},
			{ID: "m3", Seq: 3, PlayerA: "carol", PlayerB: "alice", Outcome: model.OutcomeAWon},
		}, nil)
	s.Require().NoError(err)

	s.Equal(want["alice"], s.elo("alice"))
	s.Equal(want["bob"], s.elo("bob"))
	s.Equal(want["carol"], s.elo("carol"))

	_, err = s.controller.GetMatch(s.ctx, "m2")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *ControllerSuite) TestDeleteOnlyMatchRestoresBaseline() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	s.record("m1", alice, bob, model.OutcomeAWon)

	s.Require().NoError(s.controller.DeleteMatch(s.ctx, "m1"))
	s.Equal(1200, s.elo("alice"))
	s.Equal(1200, s.elo("bob"))
}

func (s *ControllerSuite) TestDeleteMatchNotFound() {
	err := s.controller.DeleteMatch(s.ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *ControllerSuite) TestDeletePlayerCascadesAndReplays() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	carol := s.register("carol", "Carol")
	s.record("m1", alice, bob, model.OutcomeAWon)
	s.record("m2", bob, carol, model.OutcomeAWon)

	deleted, err := s.controller.DeletePlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1, deleted)

	// Only bob beating carol from baseline remains
	s.Equal(1248, s.elo("bob"))
	s.Equal(1152, s.elo("carol"))
	s.requireConsistent()

	_, err = s.controller.GetPlayer(s.ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ControllerSuite) TestDeletePlayerNotFound() {
	_, err := s.controller.DeletePlayer(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Replay tests

func (s *ControllerSuite) TestRecalculateIsIdempotent() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	s.record("m1", alice, bob, model.OutcomeAWon)
	s.record("m2", bob, alice, model.OutcomeDraw)

	first, err := s.controller.Recalculate(s.ctx)
	s.Require().NoError(err)
	second, err := s.controller.Recalculate(s.ctx)
	s.Require().NoError(err)

	s.Equal(first.Ratings, second.Ratings)
	s.Equal(2, first.Players)
	s.Equal(2, first.Matches)
	s.Equal(first.Ratings["alice"], s.elo("alice"))
}

func (s *ControllerSuite) TestVerifyDetectsAndRecalculateRepairs() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	s.record("m1", alice, bob, model.OutcomeAWon)

	// Corrupt a stored rating behind the controller's back
	err := s.storage.Atomically(s.ctx, func(tx storage.Tx) error {
		return tx.UpdateRatings(s.ctx, map[model.PlayerID]int{"bob": 1500})
	})
	s.Require().NoError(err)

	res, err := s.controller.Verify(s.ctx)
	s.Require().NoError(err)
	s.False(res.Consistent())
	s.Equal([]Divergence{{PlayerID: "bob", Name: "Bob", Stored: 1500, Replayed: 1152}}, res.Divergences)

	_, err = s.controller.Recalculate(s.ctx)
	s.Require().NoError(err)
	s.requireConsistent()
	s.Equal(1152, s.elo("bob"))
}

func (s *ControllerSuite) TestFailedReplayRollsBackMutation() {
	store := &failingRatingsStorage{Storage: s.storage}
	controller := s.newController(store)

	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	s.record("m1", alice, bob, model.OutcomeAWon)

	store.armed = true
	_, err := controller.UpdateMatchOutcome(s.ctx, "m1", "B_WON")
	s.ErrorIs(err, ErrRecalculation)
	s.ErrorIs(err, errDiskFull)

	err = controller.DeleteMatch(s.ctx, "m1")
	s.ErrorIs(err, ErrRecalculation)

	m, err := s.storage.GetMatch(s.ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.OutcomeAWon, m.Outcome)
	s.Equal(1248, s.elo("alice"))
}

func (s *ControllerSuite) TestFailedFastPathLeavesNoMatch() {
	store := &failingRatingsStorage{Storage: s.storage}
	controller := s.newController(store)
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")

	store.armed = true
	_, err := controller.RecordMatch(s.ctx, RecordMatchRequest{PlayerA: alice.ID, PlayerB: bob.ID, Outcome: "A_WON"})
	s.ErrorIs(err, errDiskFull)

	matches, err := s.storage.ListMatches(s.ctx, storage.MatchQuery{})
	s.Require().NoError(err)
	s.Empty(matches)
}

func (s *ControllerSuite) TestConcurrentRecordsStayConsistent() {
	ids := []model.PlayerID{}
	for _, name := range []string{"a", "b", "c", "d"} {
		ids = append(ids, s.register(name, name).ID)
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.controller.RecordMatch(s.ctx, RecordMatchRequest{
				PlayerA:  ids[i%4],
				PlayerB:  ids[(i+1)%4],
				Outcome:  string([]model.Outcome{model.OutcomeAWon, model.OutcomeBWon, model.OutcomeDraw}[i%3]),
				PlayedAt: s.clock.Now().Add(time.Duration(i%5) * time.Second),
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	matches, err := s.controller.ListRecentMatches(s.ctx, 100)
	s.Require().NoError(err)
	s.Len(matches, 40)
	s.requireConsistent()
}

func (s *ControllerSuite) TestImportCopiesAndReplays() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	s.record("m1", alice, bob, model.OutcomeAWon)
	s.record("m2", alice, bob, model.OutcomeAWon)

	dest := memory.New()
	destController := s.newController(dest)
	res, err := destController.Import(s.ctx, s.storage)
	s.Require().NoError(err)
	s.Equal(2, res.Players)
	s.Equal(2, res.Matches)

	p, err := dest.GetPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1283, p.CurrentElo)

	_, err = destController.Import(s.ctx, s.storage)
	s.ErrorIs(err, ErrDestinationNotEmpty)
}

func (s *ControllerSuite) TestEventsCarryRatings() {
	alice := s.register("alice", "Alice")
	bob := s.register("bob", "Bob")
	s.record("m1", alice, bob, model.OutcomeAWon)

	last := s.publisher.events[len(s.publisher.events)-1]
	s.Equal(model.EventMatchRecorded, last.Type)
	s.Equal(model.MatchID("m1"), last.MatchID)
	s.Equal(map[model.PlayerID]int{"alice": 1248, "bob": 1152}, last.Ratings)
}
