// Package historian drains resolved round records from the Redis queue and
// persists them to round_history in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink stores a batch of round records; *database.Store implements it.
type Sink interface {
	InsertRoundHistory(ctx context.Context, records []models.RoundResultRecord) error
}

// popTimeout is the longest a single BLPOP blocks; Redis counts it in whole seconds.
const popTimeout = time.Second

type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
}

// Service pops round records with BLPOP and flushes them to a Sink when the
// batch is full or FlushDelay has passed since the last flush.
type Service struct {
	rdb    *redis.Client
	sink   Sink
	logger logrus.FieldLogger

	queue      string
	batchSize  int
	flushDelay time.Duration

	batch     []models.RoundResultRecord
	lastFlush time.Time
	// pending is set while the last flush failed. No more records are popped
	// until the batch is written, so the batch never outgrows batchSize and
	// unread records wait in Redis.
	pending bool
}

func NewService(rdb *redis.Client, sink Sink, cfg Config, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.Queue == "" {
		cfg.Queue = "blackjack_rounds"
	}
	return &Service{
		rdb:        rdb,
		sink:       sink,
		logger:     logger.WithField("queue", cfg.Queue),
		queue:      cfg.Queue,
		batchSize:  cfg.BatchSize,
		flushDelay: cfg.FlushDelay,
		batch:      make([]models.RoundResultRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled. Whatever is still batched at that point
// is flushed before it returns.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("historian started")
	s.lastFlush = time.Now()

	for {
		if ctx.Err() != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.flush(flushCtx)
			cancel()
			s.logger.Info("historian stopped")
			return nil
		}

		if s.pending {
			select {
			case <-ctx.Done():
			case <-time.After(s.flushDelay):
				s.flush(ctx)
			}
			continue
		}

		// The BLPOP timeout doubles as the flush ticker.
		res, err := s.rdb.BLPop(ctx, popTimeout, s.queue).Result()
		switch {
		case err == nil && len(res) == 2:
			s.add(res[1])
		case err == nil, errors.Is(err, redis.Nil), ctx.Err() != nil:
		default:
			s.logger.Errorf("BLPop: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(s.flushDelay):
			}
		}

		if len(s.batch) >= s.batchSize || time.Since(s.lastFlush) >= s.flushDelay {
			s.flush(ctx)
		}
	}
}

func (s *Service) add(payload string) {
	var rec models.RoundResultRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.logger.Warnf("dropping invalid round record: %v", err)
		return
	}
	s.batch = append(s.batch, rec)
}

// flush writes the batch. On failure the batch is kept and marked pending.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		s.pending = false
		return
	}
	if err := s.sink.InsertRoundHistory(ctx, s.batch); err != nil {
		s.logger.Errorf("failed to flush %d round records: %v", len(s.batch), err)
		s.pending = true
		return
	}
	s.pending = false
	s.logger.Debugf("flushed %d round records", len(s.batch))
	s.batch = make([]models.RoundResultRecord, 0, s.batchSize)
}
