// cmd/historian is a separate process that drains resolved rounds from the
// Redis queue into the round_history table.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/jason-s-yu/blackjack/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
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

	rdb, err := cache.Connect(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.NewService(rdb, store, historian.Config{
		Queue:      cfg.Historian.Queue,
		BatchSize:  cfg.Historian.BatchSize,
		FlushDelay: cfg.Historian.FlushDelay,
	}, logger)
	if err := svc.Run(ctx); err != nil {
		logger.Errorf("historian: %v", err)
	}
}
