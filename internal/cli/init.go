// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/collegesave and cmd/projection-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"collegesave/internal/cache"
	"collegesave/internal/config"
	applog "collegesave/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string, component string) *applog.Logger {
	lvl, err := config.ParseLevel(level)
	logger := applog.New(applog.Config{Level: lvl, Component: component})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "log_level", level)
	}
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// NewChartCache builds the chart cache selected by CACHE_BACKEND.
// A Redis cache that cannot be reached at startup falls back to memory.
func NewChartCache(ctx context.Context, logger *applog.Logger, cfg *config.Config) cache.Cache[[]byte] {
	if cfg.CacheBackend == "redis" {
		rc := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.RedisAddr, TTL: cfg.CacheTTL})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			logger.Warn("Redis unavailable, falling back to memory cache", "error", err, "addr", cfg.RedisAddr)
			_ = rc.Close()
		} else {
			logger.Info("Initialized Redis chart cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
			return rc
		}
	}
	logger.Info("Initialized memory chart cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	return cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// ShutdownContext returns a fresh context bounded by timeout, for cleanup
// work after the main context has been cancelled.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// Fatal logs err and exits the process.
func Fatal(logger *applog.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{"error", err}, args...)...)
	os.Exit(1)
}
