package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableFixture struct {
	table   *Table
	source  *scriptedSource
	store   *MemoryRoundStore
	wins    *countingWins
	results *capturePublisher
	metrics *outcomeCounter
	userID  uuid.UUID
}

// newTableFixture deals from the given cards. The first four go to the opening
// deal, alternating player, dealer, player, dealer.
func newTableFixture(t *testing.T, values ...string) *tableFixture {
	t.Helper()
	f := &tableFixture{
		source:  newScriptedSource(values...),
		store:   NewMemoryRoundStore(),
		wins:    newCountingWins(),
		results: &capturePublisher{},
		metrics: &outcomeCounter{},
		userID:  uuid.New(),
	}
	f.table = NewTable(TableConfig{
		Cards:   f.source,
		Rounds:  f.store,
		Wins:    f.wins,
		Results: f.results,
		Metrics: f.metrics,
		Logger:  quietLogger(),
	})
	return f
}

func TestNewRoundDealsTwoCardsEach(t *testing.T) {
	f := newTableFixture(t, "10", "9", "7", "5")

	st, err := f.table.NewRound(context.Background(), f.userID)
	require.NoError(t, err)

	assert.Equal(t, hand("10", "7"), st.Player)
	assert.Equal(t, hand("9", "5"), st.Dealer)
	assert.False(t, st.Resolved)
	assert.Equal(t, models.OutcomeContinue, st.Outcome)
	assert.NotEqual(t, uuid.Nil, st.ID)
	assert.NotEmpty(t, st.DeckID)
	assert.Equal(t, 1, f.source.decks)

	stored, err := f.table.Current(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, stored.ID)
}

func TestStandDrawKeepsWinsUnchanged(t *testing.T) {
	f := newTableFixture(t, "10", "10", "9", "9")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	st, err := f.table.Stand(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, st.Resolved)
	assert.Equal(t, models.OutcomeDraw, st.Outcome)
	assert.NotNil(t, st.ResolvedAt)
	assert.Equal(t, 0, f.wins.calls)
	assert.Len(t, f.source.returned, 1)
}

func TestHitDealerBustWinsOnce(t *testing.T) {
	// player 10,9 ; dealer 10,5 ; hit gives player a 2 (21) and dealer a 9 (24)
	f := newTableFixture(t, "10", "10", "9", "5", "2", "9")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	st, err := f.table.Hit(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 21, Score(st.Player))
	assert.Equal(t, 24, Score(st.Dealer))
	assert.True(t, st.Resolved)
	assert.Equal(t, models.OutcomeWin, st.Outcome)
	assert.Equal(t, 1, f.wins.calls)
	assert.True(t, f.wins.rounds[st.ID])
	assert.True(t, st.WinRecorded)

	require.Len(t, f.results.records, 1)
	rec := f.results.records[0]
	assert.Equal(t, st.ID, rec.RoundID)
	assert.Equal(t, f.userID, rec.UserID)
	assert.Equal(t, models.OutcomeWin, rec.Outcome)
	assert.Equal(t, []string{"0S", "9S", "2S"}, rec.PlayerCards)
	assert.Equal(t, 1, f.metrics.counts["WIN"])
}

func TestPlayerBustLoses(t *testing.T) {
	// player 10,5 ; dealer 10,7 ; hit gives the player a 9
	f := newTableFixture(t, "10", "10", "5", "7", "9")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	st, err := f.table.Hit(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 24, Score(st.Player))
	assert.Len(t, st.Dealer, 2, "dealer stands on 17")
	assert.Equal(t, models.OutcomeLoss, st.Outcome)
	assert.Equal(t, 0, f.wins.calls)
}

func TestDealerDoesNotDrawWhenPlayerBusts(t *testing.T) {
	// dealer on 12 would draw, but the player's hit busts first
	f := newTableFixture(t, "10", "10", "6", "2", models.ValueKing, "3")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	st, err := f.table.Hit(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, st.Dealer, 2)
	assert.Equal(t, models.OutcomeLoss, st.Outcome)
}

func TestHitDrawsDealerOnlyOnce(t *testing.T) {
	// dealer 2,3 stays under 16 after one extra card; only one is dealt per hit
	f := newTableFixture(t, "2", "2", "3", "3", "2", "4", "2", "5")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	st, err := f.table.Hit(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, st.Resolved)
	assert.Equal(t, models.OutcomeContinue, st.Outcome)
	assert.Equal(t, hand("2", "3", "2"), st.Player)
	assert.Equal(t, hand("2", "3", "4"), st.Dealer)

	st, err = f.table.Hit(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, hand("2", "3", "4", "5"), st.Dealer)
}

func TestSoftAceStandWins(t *testing.T) {
	f := newTableFixture(t, models.ValueAce, "10", "9", "9")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	st, err := f.table.Stand(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWin, st.Outcome)
	assert.Equal(t, 1, f.wins.calls)
}

func TestResolvedRoundRejectsFurtherActions(t *testing.T) {
	f := newTableFixture(t, models.ValueAce, "10", "9", "9", "5")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)
	_, err = f.table.Stand(ctx, f.userID)
	require.NoError(t, err)

	_, err = f.table.Stand(ctx, f.userID)
	assert.ErrorIs(t, err, ErrRoundOver)
	_, err = f.table.Hit(ctx, f.userID)
	assert.ErrorIs(t, err, ErrRoundOver)

	assert.Equal(t, 1, f.wins.calls, "a resolved win is never counted twice")
	assert.Len(t, f.results.records, 1)

	st, err := f.table.Current(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWin, st.Outcome)
}

func TestActionsWithoutRound(t *testing.T) {
	f := newTableFixture(t)
	ctx := context.Background()

	_, err := f.table.Hit(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNoRound)
	_, err = f.table.Stand(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNoRound)
	_, err = f.table.Current(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNoRound)
}

func TestFailedDrawLeavesStateUntouched(t *testing.T) {
	// dealer on 12 must draw; the second draw of the hit fails
	f := newTableFixture(t, "10", "10", "2", "2", "3", "4")
	ctx := context.Background()

	before, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	// draw #1 was the deal, #2 is the player's card, #3 the dealer's
	f.source.failAfter = 3
	_, err = f.table.Hit(ctx, f.userID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCardSource)

	after, err := f.table.Current(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, before.Player, after.Player)
	assert.Equal(t, before.Dealer, after.Dealer)
	assert.False(t, after.Resolved)
}

func TestCardSourceErrorOnNewRound(t *testing.T) {
	f := newTableFixture(t)
	f.source.drawErr = errors.New("dial tcp: i/o timeout")

	_, err := f.table.NewRound(context.Background(), f.userID)
	assert.ErrorIs(t, err, ErrCardSource)
	_, err = f.store.Load(context.Background(), f.userID)
	assert.ErrorIs(t, err, ErrNoRound)
}

func TestWinRecordFailureIsRetriedByCurrent(t *testing.T) {
	f := newTableFixture(t, models.ValueAce, "10", "9", "9")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	f.wins.err = errors.New("db down")
	st, err := f.table.Stand(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, st.Resolved)
	assert.Equal(t, models.OutcomeWin, st.Outcome)
	assert.False(t, st.WinRecorded)
	assert.Equal(t, 0, f.wins.calls)

	// The round stays closed while the win is owed.
	_, err = f.table.Hit(ctx, f.userID)
	assert.ErrorIs(t, err, ErrRoundOver)

	st, err = f.table.Current(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, st.WinRecorded)

	f.wins.err = nil
	st, err = f.table.Current(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, st.WinRecorded)
	assert.Equal(t, 1, f.wins.calls)

	_, err = f.table.Current(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.wins.calls)
}

func TestNewRoundCreditsOwedWin(t *testing.T) {
	f := newTableFixture(t, models.ValueAce, "10", "9", "9", "10", "10", "7", "7")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	f.wins.err = errors.New("db down")
	won, err := f.table.Stand(ctx, f.userID)
	require.NoError(t, err)

	// Still failing: the owed win blocks replacing the round.
	_, err = f.table.NewRound(ctx, f.userID)
	require.Error(t, err)
	st, err := f.store.Load(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, won.ID, st.ID)

	f.wins.err = nil
	next, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)
	assert.NotEqual(t, won.ID, next.ID)
	assert.Equal(t, 1, f.wins.calls)
	assert.True(t, f.wins.rounds[won.ID])
}

// failResolvedSave fails the first Save of a resolved round.
type failResolvedSave struct {
	*MemoryRoundStore
	failed bool
}

func (s *failResolvedSave) Save(ctx context.Context, userID uuid.UUID, state *models.RoundState) error {
	if state.Resolved && !s.failed {
		s.failed = true
		return errors.New("redis: connection reset")
	}
	return s.MemoryRoundStore.Save(ctx, userID, state)
}

func TestFailedResolvedSaveCountsNoWin(t *testing.T) {
	// player 10,9 (19) ; dealer 10,8 (18) ; the later hit gives the player a 5
	f := newTableFixture(t, "10", "10", "9", "8", "5")
	store := &failResolvedSave{MemoryRoundStore: f.store}
	f.table = NewTable(TableConfig{
		Cards:  f.source,
		Rounds: store,
		Wins:   f.wins,
		Logger: quietLogger(),
	})
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	_, err = f.table.Stand(ctx, f.userID)
	require.Error(t, err)
	assert.Equal(t, 0, f.wins.calls, "no win is counted for a round that was not stored as resolved")

	st, err := f.table.Current(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, st.Resolved)

	st, err = f.table.Hit(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLoss, st.Outcome)
	assert.Equal(t, 24, Score(st.Player))
	assert.Equal(t, 0, f.wins.calls)
}

func TestForgetCreditsOwedWin(t *testing.T) {
	f := newTableFixture(t, models.ValueAce, "10", "9", "9")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)
	f.wins.err = errors.New("db down")
	_, err = f.table.Stand(ctx, f.userID)
	require.NoError(t, err)

	require.Error(t, f.table.Forget(ctx, f.userID))
	_, err = f.store.Load(ctx, f.userID)
	require.NoError(t, err, "round is kept until its win is recorded")

	f.wins.err = nil
	require.NoError(t, f.table.Forget(ctx, f.userID))
	assert.Equal(t, 1, f.wins.calls)
	_, err = f.store.Load(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNoRound)
}

func TestNewRoundReturnsUnfinishedDeck(t *testing.T) {
	f := newTableFixture(t, "10", "10", "7", "7", "9", "9", "8", "8")
	ctx := context.Background()

	first, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)
	second, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{first.DeckID}, f.source.returned)
	assert.Equal(t, 2, f.source.decks)
}

func TestForget(t *testing.T) {
	f := newTableFixture(t, "10", "10", "7", "7")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)
	require.NoError(t, f.table.Forget(ctx, f.userID))
	require.NoError(t, f.table.Forget(ctx, f.userID))

	_, err = f.table.Current(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNoRound)
	assert.Len(t, f.source.returned, 1)
}

func TestConcurrentStandCountsOneWin(t *testing.T) {
	f := newTableFixture(t, models.ValueAce, "10", "9", "9")
	ctx := context.Background()

	_, err := f.table.NewRound(ctx, f.userID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.table.Stand(ctx, f.userID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrRoundOver)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.wins.calls)
}
