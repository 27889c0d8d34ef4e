// Package config reads the process configuration from environment
// variables. Everything is resolved once at boot so main stays lean; the
// backend switch in particular is not expected to change at runtime.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selects the record store implementation.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendPostgres Backend = "postgres"
)

// Config captures everything the server needs at boot.
type Config struct {
	Addr    string
	Backend Backend

	// Flat-file backend.
	DataDir    string
	BackupDir  string
	MaxBackups int

	// Relational backend.
	DatabaseURL string

	// Cache. RedisURL empty means the process-local memory cache.
	RedisURL        string
	CatalogCacheTTL time.Duration
	GrantCacheTTL   time.Duration

	// Admin API auth.
	JWTSigningKey string

	// Notifications. No brokers means the log sink only.
	KafkaBrokers []string
	KafkaTopic   string
	NotifyBuffer int
}

// FromEnv builds a Config with development-friendly defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("ACCESSHUB_ADDR", ":8080"),
		Backend:         Backend(envOr("ACCESSHUB_BACKEND", string(BackendFile))),
		DataDir:         envOr("ACCESSHUB_DATA_DIR", "./data"),
		BackupDir:       envOr("ACCESSHUB_BACKUP_DIR", "./backups"),
		MaxBackups:      envIntOr("ACCESSHUB_MAX_BACKUPS", 10),
		DatabaseURL:     os.Getenv("ACCESSHUB_DATABASE_URL"),
		RedisURL:        os.Getenv("ACCESSHUB_REDIS_URL"),
		CatalogCacheTTL: envDurationOr("ACCESSHUB_CATALOG_CACHE_TTL", 10*time.Minute),
		GrantCacheTTL:   envDurationOr("ACCESSHUB_GRANT_CACHE_TTL", 5*time.Minute),
		JWTSigningKey:   envOr("ACCESSHUB_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		KafkaTopic:      envOr("ACCESSHUB_KAFKA_TOPIC", "access-events"),
		NotifyBuffer:    envIntOr("ACCESSHUB_NOTIFY_BUFFER", 256),
	}
	if brokers := os.Getenv("ACCESSHUB_KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
