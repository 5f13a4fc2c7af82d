// internal/handlers/api_server.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus"
)

// Accounts is the account repository the handlers need.
type Accounts interface {
	CreateUser(ctx context.Context, user *models.User) error
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	TopWinners(ctx context.Context, limit int) ([]models.User, error)
	RoundHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.RoundResultRecord, error)
}

// Rounds runs the turn protocol; *game.Table implements it.
type Rounds interface {
	NewRound(ctx context.Context, userID uuid.UUID) (*models.RoundState, error)
	Hit(ctx context.Context, userID uuid.UUID) (*models.RoundState, error)
	Stand(ctx context.Context, userID uuid.UUID) (*models.RoundState, error)
	Current(ctx context.Context, userID uuid.UUID) (*models.RoundState, error)
	Forget(ctx context.Context, userID uuid.UUID) error
}

// Tokens issues and verifies session tokens; *auth.Issuer implements it.
type Tokens interface {
	Issue(userID uuid.UUID) (string, error)
	Verify(token string) (uuid.UUID, error)
	Expiry() time.Duration
}

// ServerConfig wires a Server. Metrics is optional.
type ServerConfig struct {
	Accounts Accounts
	Rounds   Rounds
	Tokens   Tokens
	Logger   logrus.FieldLogger
	Metrics  http.Handler

	// SecureCookies marks the auth cookie Secure; enable behind TLS.
	SecureCookies bool
	// OriginPatterns restricts WebSocket origins. Empty allows any origin.
	OriginPatterns []string
}

// Server holds the collaborators every handler needs. Nothing here is global.
type Server struct {
	accounts       Accounts
	rounds         Rounds
	tokens         Tokens
	logger         logrus.FieldLogger
	metrics        http.Handler
	secureCookies  bool
	originPatterns []string
}

func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	origins := cfg.OriginPatterns
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		accounts:       cfg.Accounts,
		rounds:         cfg.Rounds,
		tokens:         cfg.Tokens,
		logger:         logger,
		metrics:        cfg.Metrics,
		secureCookies:  cfg.SecureCookies,
		originPatterns: origins,
	}
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", PingHandler)

	// user endpoints
	mux.HandleFunc("POST /user/create", s.CreateUserHandler)
	mux.HandleFunc("POST /user/login", s.LoginHandler)
	mux.HandleFunc("POST /user/logout", s.LogoutHandler)
	mux.HandleFunc("GET /user/me", s.MeHandler)
	mux.HandleFunc("GET /user/history", s.HistoryHandler)
	mux.HandleFunc("GET /leaderboard", s.LeaderboardHandler)

	// round endpoints
	mux.HandleFunc("GET /round", s.CurrentRoundHandler)
	mux.HandleFunc("DELETE /round", s.ForgetRoundHandler)
	mux.HandleFunc("POST /round/new", s.NewRoundHandler)
	mux.HandleFunc("POST /round/hit", s.HitHandler)
	mux.HandleFunc("POST /round/stand", s.StandHandler)
	mux.HandleFunc("GET /round/ws", s.RoundWSHandler)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// PingHandler answers liveness probes.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("pong"))
}
