// Package config loads the order service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const ServiceName = "order-service"

// Config holds what changes between environments.
type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	DatabasePath    string
	RedisAddr       string // empty disables idempotency
	IdempotencyTTL  time.Duration
	ServiceName     string
	OTLPEndpoint    string // empty disables tracing export
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

// Load reads the configuration, falling back to local defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:     getEnv("GRPC_ADDR", ":9090"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/orders.db"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", ServiceName),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var err error
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("config: DATABASE_PATH cannot be empty")
	}
	return cfg, nil
}

// TracingEnabled reports whether spans should be exported.
func (c *Config) TracingEnabled() bool {
	return c.OTLPEndpoint != ""
}

// IdempotencyEnabled reports whether a Redis cache was configured.
func (c *Config) IdempotencyEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %s", key, raw)
	}
	return d, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return level, nil
}
