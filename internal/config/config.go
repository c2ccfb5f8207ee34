// Package config loads klock's runtime configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StorageMode selects which store.LeaseStore backs the kernel.
type StorageMode string

const (
	StorageMemory   StorageMode = "memory"
	StoragePostgres StorageMode = "postgres"
)

// Config holds every environment-tunable setting klock needs at startup.
type Config struct {
	Host string
	Port int

	StorageMode StorageMode
	PostgresDSN string

	RedisAddr string

	APIKey    string
	JWTSecret string

	LogLevel  string
	LogFormat string

	SweepInterval time.Duration

	MetricsEnabled bool
	MetricsPort    int
}

// Load reads KLOCK_* environment variables into a Config, first loading
// .env if present. Missing .env is not an error; local dev may not use one.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("warning: could not load .env: %v\n", err)
	}

	cfg := &Config{
		Host: getEnv("KLOCK_HOST", "0.0.0.0"),
		Port: getIntEnv("KLOCK_PORT", 7433),

		StorageMode: StorageMode(strings.ToLower(getEnv("KLOCK_STORAGE", "memory"))),
		PostgresDSN: getEnv("KLOCK_POSTGRES_DSN", ""),

		RedisAddr: getEnv("KLOCK_REDIS_ADDR", ""),

		APIKey:    getEnv("KLOCK_API_KEY", ""),
		JWTSecret: getEnv("KLOCK_JWT_SECRET", ""),

		LogLevel:  getEnv("KLOCK_LOG_LEVEL", "info"),
		LogFormat: getEnv("KLOCK_LOG_FORMAT", "text"),

		MetricsEnabled: getBoolEnv("KLOCK_METRICS_ENABLED", true),
		MetricsPort:    getIntEnv("KLOCK_METRICS_PORT", 9090),
	}

	interval := getEnv("KLOCK_SWEEP_INTERVAL", "5s")
	parsed, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid KLOCK_SWEEP_INTERVAL: %w", err)
	}
	cfg.SweepInterval = parsed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants Load's defaults cannot guarantee on their own.
func (c *Config) Validate() error {
	switch c.StorageMode {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("invalid KLOCK_STORAGE: %q (must be memory or postgres)", c.StorageMode)
	}

	if c.StorageMode == StoragePostgres && c.PostgresDSN == "" {
		return errors.New("KLOCK_POSTGRES_DSN is required when KLOCK_STORAGE=postgres")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid KLOCK_PORT: %d", c.Port)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
