package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"collegesave/internal/cache"
	"collegesave/internal/cli"
	apphttp "collegesave/internal/http"
	applog "collegesave/internal/log"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info", applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentHTTP)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	charts := cli.NewChartCache(ctx, logger, cfg)
	if c, ok := charts.(interface{ Close() error }); ok {
		defer c.Close()
	}

	manager := cache.NewManager()
	manager.Register(charts)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Config{
		Logger:             logger,
		ChartCache:         charts,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting collegesave server",
			"port", cfg.Port,
			"cache_backend", cfg.CacheBackend,
			"rate_limit_per_minute", cfg.RateLimitPerMinute)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		manager.StartCleanup(time.Minute)
		<-gctx.Done()
		manager.Stop()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := cli.ShutdownContext(cfg.ShutdownTimeout)
		defer shutdownCancel()
		logger.Info("Shutting down server", applog.FieldOperation, applog.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}
	logger.Info("Server stopped gracefully")
}
