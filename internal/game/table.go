// internal/game/table.go
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultDeckCount is the number of decks in a fresh shoe.
const DefaultDeckCount = 6

// initialDeal is how many cards a new round takes from the shoe: two per hand.
const initialDeal = 4

// CardSource supplies shuffled shoes and drawn cards. The Table never tracks deck
// composition itself.
type CardSource interface {
	NewDeck(ctx context.Context, deckCount int) (string, error)
	Draw(ctx context.Context, deckID string, count int) ([]models.Card, error)
	ReturnAll(ctx context.Context, deckID string) error
}

// WinRecorder persists a won round against the user's account. Implementations
// must count a given roundID at most once.
type WinRecorder interface {
	RecordWin(ctx context.Context, userID, roundID uuid.UUID) error
}

// ResultPublisher receives a record for every resolved round.
type ResultPublisher interface {
	PublishRoundResult(ctx context.Context, rec models.RoundResultRecord) error
}

// OutcomeRecorder counts resolved rounds by outcome.
type OutcomeRecorder interface {
	RecordRound(outcome string)
}

// TableConfig wires a Table to its collaborators. Results and Metrics are optional.
type TableConfig struct {
	Cards     CardSource
	Rounds    RoundStore
	Wins      WinRecorder
	Results   ResultPublisher
	Metrics   OutcomeRecorder
	Logger    logrus.FieldLogger
	DeckCount int
}

// Table runs the turn protocol for every user: dealing, hitting, standing and
// settling rounds. Turns for the same user are serialised.
type Table struct {
	cards     CardSource
	rounds    RoundStore
	wins      WinRecorder
	results   ResultPublisher
	metrics   OutcomeRecorder
	logger    logrus.FieldLogger
	deckCount int
	locks     *userLocks
	now       func() time.Time
}

func NewTable(cfg TableConfig) *Table {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	deckCount := cfg.DeckCount
	if deckCount <= 0 {
		deckCount = DefaultDeckCount
	}
	return &Table{
		cards:     cfg.Cards,
		rounds:    cfg.Rounds,
		wins:      cfg.Wins,
		results:   cfg.Results,
		metrics:   cfg.Metrics,
		logger:    logger,
		deckCount: deckCount,
		locks:     newUserLocks(),
		now:       time.Now,
	}
}

// NewRound discards whatever round the user had and deals a fresh one from a new shoe.
func (t *Table) NewRound(ctx context.Context, userID uuid.UUID) (*models.RoundState, error) {
	unlock := t.locks.lock(userID)
	defer unlock()

	prev, err := t.rounds.Load(ctx, userID)
	switch {
	case err == nil:
		if !prev.Resolved {
			t.returnCards(ctx, prev.DeckID)
		}
		if err := t.creditWin(ctx, userID, prev); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrNoRound):
	default:
		return nil, fmt.Errorf("load round: %w", err)
	}

	deckID, err := t.cards.NewDeck(ctx, t.deckCount)
	if err != nil {
		return nil, fmt.Errorf("%w: new deck: %w", ErrCardSource, err)
	}
	cards, err := t.draw(ctx, deckID, initialDeal)
	if err != nil {
		return nil, err
	}

	state := &models.RoundState{
		ID:        uuid.New(),
		DeckID:    deckID,
		Player:    models.Hand{cards[0], cards[2]},
		Dealer:    models.Hand{cards[1], cards[3]},
		Outcome:   models.OutcomeContinue,
		StartedAt: t.now(),
	}
	if err := t.rounds.Save(ctx, userID, state); err != nil {
		return nil, fmt.Errorf("save round: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"round_id": state.ID,
		"deck_id":  deckID,
	}).Debug("dealt new round")
	return state, nil
}

// Hit draws one card for the player and, when the dealer is below its stand
// threshold and the player is still live, one card for the dealer. The dealer
// never draws more than once per hit.
func (t *Table) Hit(ctx context.Context, userID uuid.UUID) (*models.RoundState, error) {
	unlock := t.locks.lock(userID)
	defer unlock()

	state, err := t.loadActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := state.Clone()
	cards, err := t.draw(ctx, next.DeckID, 1)
	if err != nil {
		return nil, err
	}
	next.Player = append(next.Player, cards[0])

	if MustDraw(next.Dealer) && !IsBust(next.Player) {
		cards, err = t.draw(ctx, next.DeckID, 1)
		if err != nil {
			return nil, err
		}
		next.Dealer = append(next.Dealer, cards[0])
	}

	return t.settle(ctx, userID, next, false)
}

// Stand ends the player's turn without drawing and resolves the round.
func (t *Table) Stand(ctx context.Context, userID uuid.UUID) (*models.RoundState, error) {
	unlock := t.locks.lock(userID)
	defer unlock()

	state, err := t.loadActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return t.settle(ctx, userID, state.Clone(), true)
}

// Current returns the user's round as stored, resolved or not. A won round
// whose win was not credited yet gets another attempt here.
func (t *Table) Current(ctx context.Context, userID uuid.UUID) (*models.RoundState, error) {
	unlock := t.locks.lock(userID)
	defer unlock()

	state, err := t.rounds.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := t.creditWin(ctx, userID, state); err != nil {
		t.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"round_id": state.ID,
		}).Warnf("win still not recorded: %v", err)
	}
	return state, nil
}

// Forget clears the user's round, returning its cards if it was still live.
func (t *Table) Forget(ctx context.Context, userID uuid.UUID) error {
	unlock := t.locks.lock(userID)
	defer unlock()

	state, err := t.rounds.Load(ctx, userID)
	if errors.Is(err, ErrNoRound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !state.Resolved {
		t.returnCards(ctx, state.DeckID)
	}
	if err := t.creditWin(ctx, userID, state); err != nil {
		return err
	}
	return t.rounds.Clear(ctx, userID)
}

func (t *Table) loadActive(ctx context.Context, userID uuid.UUID) (*models.RoundState, error) {
	state, err := t.rounds.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state.Resolved {
		return nil, ErrRoundOver
	}
	return state, nil
}

// settle runs the resolver over next and stores the result. The resolved round
// is saved before any win is credited, so a failed save leaves both the round
// and the win counter as they were.
func (t *Table) settle(ctx context.Context, userID uuid.UUID, next *models.RoundState, stop bool) (*models.RoundState, error) {
	res := Resolve(next.Player, next.Dealer, stop)
	if !res.Over {
		next.Outcome = models.OutcomeContinue
		if err := t.rounds.Save(ctx, userID, next); err != nil {
			return nil, fmt.Errorf("save round: %w", err)
		}
		return next, nil
	}

	resolvedAt := t.now()
	next.Resolved = true
	next.Outcome = res.Outcome
	next.ResolvedAt = &resolvedAt
	if err := t.rounds.Save(ctx, userID, next); err != nil {
		return nil, fmt.Errorf("save round: %w", err)
	}

	logger := t.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"round_id": next.ID,
	})
	logger.WithFields(logrus.Fields{
		"outcome":      res.Outcome,
		"player_score": res.PlayerScore,
		"dealer_score": res.DealerScore,
	}).Info("round resolved")

	// The round is over either way; an uncredited win is retried by Current,
	// NewRound and Forget.
	if err := t.creditWin(ctx, userID, next); err != nil {
		logger.Warnf("failed to record win, will retry: %v", err)
	}

	if t.metrics != nil {
		t.metrics.RecordRound(string(res.Outcome))
	}
	t.publish(ctx, userID, next, res)
	t.returnCards(ctx, next.DeckID)
	return next, nil
}

// creditWin records the win of a resolved WIN round that has not been credited
// yet and marks it in the store. RecordWin is idempotent on the round id, so
// repeating this after a failed save never counts twice.
func (t *Table) creditWin(ctx context.Context, userID uuid.UUID, state *models.RoundState) error {
	if !state.Resolved || state.Outcome != models.OutcomeWin || state.WinRecorded {
		return nil
	}
	if err := t.wins.RecordWin(ctx, userID, state.ID); err != nil {
		return fmt.Errorf("record win: %w", err)
	}
	state.WinRecorded = true
	if err := t.rounds.Save(ctx, userID, state); err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

func (t *Table) draw(ctx context.Context, deckID string, count int) ([]models.Card, error) {
	cards, err := t.cards.Draw(ctx, deckID, count)
	if err != nil {
		return nil, fmt.Errorf("%w: draw: %w", ErrCardSource, err)
	}
	if len(cards) != count {
		return nil, fmt.Errorf("%w: asked for %d cards, got %d", ErrCardSource, count, len(cards))
	}
	return cards, nil
}

func (t *Table) returnCards(ctx context.Context, deckID string) {
	if deckID == "" {
		return
	}
	if err := t.cards.ReturnAll(ctx, deckID); err != nil {
		t.logger.WithField("deck_id", deckID).Warnf("failed to return cards: %v", err)
	}
}

func (t *Table) publish(ctx context.Context, userID uuid.UUID, state *models.RoundState, res Result) {
	if t.results == nil {
		return
	}
	rec := models.RoundResultRecord{
		RoundID:     state.ID,
		UserID:      userID,
		Outcome:     res.Outcome,
		PlayerScore: res.PlayerScore,
		DealerScore: res.DealerScore,
		PlayerCards: cardCodes(state.Player),
		DealerCards: cardCodes(state.Dealer),
		Timestamp:   t.now().UnixMilli(),
	}
	if err := t.results.PublishRoundResult(ctx, rec); err != nil {
		t.logger.WithField("round_id", state.ID).Warnf("failed to publish round result: %v", err)
	}
}

func cardCodes(h models.Hand) []string {
	codes := make([]string, len(h))
	for i, c := range h {
		codes[i] = c.Code
	}
	return codes
}
