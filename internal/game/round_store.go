// internal/game/round_store.go
package game

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
)

// RoundStore holds each user's current round between requests.
// Load returns ErrNoRound when nothing is stored for the user.
type RoundStore interface {
	Load(ctx context.Context, userID uuid.UUID) (*models.RoundState, error)
	Save(ctx context.Context, userID uuid.UUID, state *models.RoundState) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// MemoryRoundStore keeps rounds in process memory. Suitable for a single
// instance or for tests; use the redis store when running several replicas.
type MemoryRoundStore struct {
	mu     sync.Mutex
	rounds map[uuid.UUID]*models.RoundState
}

func NewMemoryRoundStore() *MemoryRoundStore {
	return &MemoryRoundStore{
		rounds: make(map[uuid.UUID]*models.RoundState),
	}
}

func (s *MemoryRoundStore) Load(_ context.Context, userID uuid.UUID) (*models.RoundState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rounds[userID]
	if !ok {
		return nil, ErrNoRound
	}
	return st.Clone(), nil
}

func (s *MemoryRoundStore) Save(_ context.Context, userID uuid.UUID, state *models.RoundState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[userID] = state.Clone()
	return nil
}

func (s *MemoryRoundStore) Clear(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rounds, userID)
	return nil
}
