package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/auth"
	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// memAccounts is an in-memory Accounts and game.WinRecorder.
type memAccounts struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	byName  map[string]uuid.UUID
	won     map[uuid.UUID]bool
	history []models.RoundResultRecord
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		users:  make(map[uuid.UUID]*models.User),
		byName: make(map[string]uuid.UUID),
		won:    make(map[uuid.UUID]bool),
	}
}

func (a *memAccounts) CreateUser(_ context.Context, u *models.User) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return database.ErrEmptyUsername
	}
	if _, ok := a.byName[u.Username]; ok {
		return database.ErrUsernameTaken
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	stored := *u
	a.users[u.ID] = &stored
	a.byName[u.Username] = u.ID
	return nil
}

func (a *memAccounts) AuthenticateUser(_ context.Context, username, password string) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.byName[strings.TrimSpace(username)]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	u := *a.users[id]
	if u.HasPassword() && u.Password != password {
		return nil, database.ErrInvalidCredentials
	}
	return &u, nil
}

func (a *memAccounts) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (a *memAccounts) TopWinners(_ context.Context, limit int) ([]models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.User, 0, len(a.users))
	for _, u := range a.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *memAccounts) RoundHistory(_ context.Context, userID uuid.UUID, limit int) ([]models.RoundResultRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.RoundResultRecord
	for i := len(a.history) - 1; i >= 0 && len(out) < limit; i-- {
		if a.history[i].UserID == userID {
			out = append(out, a.history[i])
		}
	}
	return out, nil
}

func (a *memAccounts) RecordWin(_ context.Context, userID, roundID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.won[roundID] {
		return nil
	}
	a.won[roundID] = true
	a.users[userID].Wins++
	return nil
}

// stubCards deals from a fixed list of card values.
type stubCards struct {
	mu       sync.Mutex
	queue    []string
	drawErr  error
	returned []string
}

func (s *stubCards) NewDeck(context.Context, int) (string, error) { return "deck-1", nil }

func (s *stubCards) Draw(_ context.Context, _ string, count int) ([]models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawErr != nil {
		return nil, s.drawErr
	}
	if count > len(s.queue) {
		return nil, errors.New("deck exhausted")
	}
	cards := make([]models.Card, count)
	for i, v := range s.queue[:count] {
		cards[i] = models.Card{Code: v[:1] + "H", Value: v, Suit: "HEARTS"}
	}
	s.queue = s.queue[count:]
	return cards, nil
}

func (s *stubCards) ReturnAll(_ context.Context, deckID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returned = append(s.returned, deckID)
	return nil
}

func (s *stubCards) returnedDecks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.returned...)
}

func (s *stubCards) deal(values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, values...)
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	accounts *memAccounts
	cards    *stubCards
	tokens   *auth.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	issuer, err := auth.NewIssuer(time.Hour)
	require.NoError(t, err)

	accounts := newMemAccounts()
	cards := &stubCards{}
	table := game.NewTable(game.TableConfig{
		Cards:  cards,
		Rounds: game.NewMemoryRoundStore(),
		Wins:   accounts,
		Logger: logger,
	})
	srv := NewServer(ServerConfig{
		Accounts: accounts,
		Rounds:   table,
		Tokens:   issuer,
		Logger:   logger,
	})
	return &testEnv{server: srv, handler: srv.Routes(), accounts: accounts, cards: cards, tokens: issuer}
}

// signUp creates a passwordless user and returns it with a valid token.
func (e *testEnv) signUp(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	u := &models.User{Username: username}
	require.NoError(t, e.accounts.CreateUser(context.Background(), u))
	token, err := e.tokens.Issue(u.ID)
	require.NoError(t, err)
	return u, token
}
