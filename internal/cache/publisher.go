package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "blackjack_rounds"

// Publisher pushes resolved round records onto a Redis list for the historian.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// PublishRoundResult serializes the record to JSON and RPUSHes it to the queue.
func (p *Publisher) PublishRoundResult(ctx context.Context, rec models.RoundResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundResultRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
