// Package config reads runtime settings from the environment. A .env file is
// loaded by the binaries through godotenv/autoload before Load runs.
package config

import (
	"fmt"
	"os"
	"time"
)

const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionStore string
	RoundTTL     time.Duration

	DeckAPI DeckAPIConfig

	TokenExpire    string
	PrivateKeyPath string
	PublicKeyPath  string

	Historian HistorianConfig
}

type DeckAPIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
	DeckCount int
}

type HistorianConfig struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		Port:     envOrDefault("PORT", "8080"),
		Env:      envOrDefault("BLACKJACK_ENV", "development"),
		LogLevel: envOrDefault("LOG_LEVEL", "info"),

		DatabaseURL: databaseURL(),

		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       intEnvOrDefault("REDIS_DB", 0),

		SessionStore: envOrDefault("SESSION_STORE", SessionStoreRedis),
		RoundTTL:     durationEnvOrDefault("ROUND_TTL", 24*time.Hour),

		DeckAPI: DeckAPIConfig{
			BaseURL:   envOrDefault("DECK_API_URL", "https://deckofcardsapi.com/api"),
			Timeout:   durationEnvOrDefault("DECK_API_TIMEOUT", 5*time.Second),
			Retries:   intEnvOrDefault("DECK_API_RETRIES", 3),
			Backoff:   durationEnvOrDefault("DECK_API_BACKOFF", 200*time.Millisecond),
			DeckCount: intEnvOrDefault("DECK_COUNT", 6),
		},

		TokenExpire:    os.Getenv("TOKEN_EXPIRE_TIME"),
		PrivateKeyPath: os.Getenv("AUTH_PRIVATE_KEY_PATH"),
		PublicKeyPath:  os.Getenv("AUTH_PUBLIC_KEY_PATH"),

		Historian: HistorianConfig{
			Queue:      envOrDefault("HISTORIAN_QUEUE_NAME", "blackjack_rounds"),
			BatchSize:  intEnvOrDefault("HISTORIAN_BATCH_SIZE", 20),
			FlushDelay: millisEnvOrDefault("HISTORIAN_FLUSH_MS", 500*time.Millisecond),
		},
	}
}

// Production reports whether the service runs with BLACKJACK_ENV=production.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the
// POSTGRES_* / PG_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		envOrDefault("PG_HOST", "localhost"),
		envOrDefault("PG_PORT", "5432"),
		envOrDefault("PG_DATABASE", "blackjack"),
	)
}
