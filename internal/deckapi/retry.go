package deckapi

import (
	"context"
	"time"

	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts = 3
	defaultBackoff       = 200 * time.Millisecond
)

// Source is the set of calls the game needs from a card service.
type Source interface {
	NewDeck(ctx context.Context, deckCount int) (string, error)
	Draw(ctx context.Context, deckID string, count int) ([]models.Card, error)
	ReturnAll(ctx context.Context, deckID string) error
}

type backoffFunc func(attempt int) time.Duration

// RetryingSource wraps a Source and retries calls that fail with a retryable error.
type RetryingSource struct {
	inner       Source
	logger      logrus.FieldLogger
	maxAttempts int
	backoffFn   backoffFunc
}

// NewRetryingSource wraps inner with linear backoff retries. Non-positive
// maxAttempts/backoff fall back to defaults.
func NewRetryingSource(inner Source, logger logrus.FieldLogger, maxAttempts int, backoff time.Duration) *RetryingSource {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RetryingSource{
		inner:       inner,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffFn: func(attempt int) time.Duration {
			return time.Duration(attempt) * backoff
		},
	}
}

func (r *RetryingSource) NewDeck(ctx context.Context, deckCount int) (string, error) {
	var deckID string
	err := r.do(ctx, opNewDeck, func() error {
		var err error
		deckID, err = r.inner.NewDeck(ctx, deckCount)
		return err
	})
	return deckID, err
}

func (r *RetryingSource) Draw(ctx context.Context, deckID string, count int) ([]models.Card, error) {
	var cards []models.Card
	err := r.do(ctx, opDraw, func() error {
		var err error
		cards, err = r.inner.Draw(ctx, deckID, count)
		return err
	})
	return cards, err
}

func (r *RetryingSource) ReturnAll(ctx context.Context, deckID string) error {
	return r.do(ctx, opReturn, func() error {
		return r.inner.ReturnAll(ctx, deckID)
	})
}

func (r *RetryingSource) do(ctx context.Context, op string, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == r.maxAttempts {
			break
		}

		r.logger.WithFields(logrus.Fields{
			"op":           op,
			"attempt":      attempt,
			"max_attempts": r.maxAttempts,
		}).Warnf("deck api retry: %v", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoffFn(attempt)):
		}
	}
	return lastErr
}
