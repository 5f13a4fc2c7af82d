// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/blackjack/internal/auth"
	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/jason-s-yu/blackjack/internal/deckapi"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/handlers"
	"github.com/jason-s-yu/blackjack/internal/metrics"
	"github.com/jason-s-yu/blackjack/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Production() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	store := database.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("database schema: %v", err)
	}

	tokenExpiry, err := auth.ParseExpiry(cfg.TokenExpire)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}
	var issuer *auth.Issuer
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		issuer, err = auth.NewIssuerFromFiles(cfg.PrivateKeyPath, cfg.PublicKeyPath, tokenExpiry)
	} else {
		logger.Warn("no auth key files configured, generating an ephemeral key pair")
		issuer, err = auth.NewIssuer(tokenExpiry)
	}
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	recorder := metrics.NewRecorder()

	rdb, err := cache.Connect(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		if cfg.SessionStore == config.SessionStoreRedis {
			logger.Fatalf("redis: %v", err)
		}
		logger.Warnf("redis unavailable, round history will not be recorded: %v", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	tableCfg := game.TableConfig{
		Cards: deckapi.NewRetryingSource(
			deckapi.NewClient(deckapi.Config{
				BaseURL: cfg.DeckAPI.BaseURL,
				Timeout: cfg.DeckAPI.Timeout,
				Metrics: recorder,
			}),
			logger,
			cfg.DeckAPI.Retries,
			cfg.DeckAPI.Backoff,
		),
		Rounds:    roundStore(cfg, rdb, logger),
		Wins:      store,
		Metrics:   recorder,
		Logger:    logger,
		DeckCount: cfg.DeckAPI.DeckCount,
	}
	if rdb != nil {
		tableCfg.Results = cache.NewPublisher(rdb, cfg.Historian.Queue)
	}
	table := game.NewTable(tableCfg)

	srv := handlers.NewServer(handlers.ServerConfig{
		Accounts:      store,
		Rounds:        table,
		Tokens:        issuer,
		Logger:        logger,
		Metrics:       recorder.Handler(),
		SecureCookies: cfg.Production(),
	})

	var handler http.Handler = srv.Routes()
	handler = middleware.LogMiddleware(logger, recorder)(handler)
	handler = middleware.Recoverer(logger)(handler)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", server.Addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("failed to serve: %v", err)
		}
	case <-ctx.Done():
		logger.Info("terminating")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func roundStore(cfg config.Config, rdb *redis.Client, logger logrus.FieldLogger) game.RoundStore {
	if cfg.SessionStore == config.SessionStoreMemory || rdb == nil {
		logger.Info("keeping rounds in process memory")
		return game.NewMemoryRoundStore()
	}
	return cache.NewRoundStore(rdb, cfg.RoundTTL)
}
