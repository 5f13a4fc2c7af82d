package game

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus"
)

func card(value string) models.Card {
	code := value
	switch value {
	case "10":
		code = "0"
	case models.ValueAce, models.ValueKing, models.ValueQueen, models.ValueJack:
		code = value[:1]
	}
	return models.Card{Code: code + "S", Value: value, Suit: "SPADES"}
}

func hand(values ...string) models.Hand {
	h := make(models.Hand, 0, len(values))
	for _, v := range values {
		h = append(h, card(v))
	}
	return h
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// scriptedSource deals cards from a fixed queue.
type scriptedSource struct {
	mu       sync.Mutex
	queue    []models.Card
	decks    int
	returned []string
	drawErr  error
	// failAfter makes the Nth Draw call (1-based) fail. Zero disables it.
	failAfter int
	draws     int
}

func newScriptedSource(values ...string) *scriptedSource {
	return &scriptedSource{queue: hand(values...)}
}

func (s *scriptedSource) NewDeck(_ context.Context, deckCount int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decks++
	return "deck-" + uuid.NewString()[:8], nil
}

func (s *scriptedSource) Draw(_ context.Context, _ string, count int) ([]models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws++
	if s.drawErr != nil {
		return nil, s.drawErr
	}
	if s.failAfter > 0 && s.draws >= s.failAfter {
		return nil, errors.New("connection reset")
	}
	if count > len(s.queue) {
		return nil, errors.New("not enough cards")
	}
	out := append([]models.Card(nil), s.queue[:count]...)
	s.queue = s.queue[count:]
	return out, nil
}

func (s *scriptedSource) ReturnAll(_ context.Context, deckID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returned = append(s.returned, deckID)
	return nil
}

// countingWins counts every RecordWin call and the distinct rounds it saw.
type countingWins struct {
	mu     sync.Mutex
	calls  int
	rounds map[uuid.UUID]bool
	err    error
}

func newCountingWins() *countingWins {
	return &countingWins{rounds: make(map[uuid.UUID]bool)}
}

func (w *countingWins) RecordWin(_ context.Context, _ uuid.UUID, roundID uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.calls++
	w.rounds[roundID] = true
	return nil
}

type capturePublisher struct {
	mu      sync.Mutex
	records []models.RoundResultRecord
}

func (p *capturePublisher) PublishRoundResult(_ context.Context, rec models.RoundResultRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return nil
}

type outcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *outcomeCounter) RecordRound(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[outcome]++
}
