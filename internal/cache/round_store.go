package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	roundKeyPrefix  = "blackjack:round:"
	DefaultRoundTTL = 24 * time.Hour
)

// RoundStore keeps each user's round as a JSON value in Redis. The TTL is
// refreshed on every save so abandoned rounds expire on their own.
type RoundStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRoundStore(rdb *redis.Client, ttl time.Duration) *RoundStore {
	if ttl <= 0 {
		ttl = DefaultRoundTTL
	}
	return &RoundStore{rdb: rdb, ttl: ttl}
}

func roundKey(userID uuid.UUID) string {
	return roundKeyPrefix + userID.String()
}

func (s *RoundStore) Load(ctx context.Context, userID uuid.UUID) (*models.RoundState, error) {
	data, err := s.rdb.Get(ctx, roundKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrNoRound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to GET round for %s: %w", userID, err)
	}

	var st models.RoundState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round for %s: %w", userID, err)
	}
	return &st, nil
}

func (s *RoundStore) Save(ctx context.Context, userID uuid.UUID, state *models.RoundState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}
	if err := s.rdb.Set(ctx, roundKey(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to SET round for %s: %w", userID, err)
	}
	return nil
}

func (s *RoundStore) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.rdb.Del(ctx, roundKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to DEL round for %s: %w", userID, err)
	}
	return nil
}
