package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/order-weather-insights/internal/adapter/httpapi"
	"github.com/couchcryptid/order-weather-insights/internal/adapter/openmeteo"
	"github.com/couchcryptid/order-weather-insights/internal/config"
	"github.com/couchcryptid/order-weather-insights/internal/domain"
	"github.com/couchcryptid/order-weather-insights/internal/observability"
	"github.com/couchcryptid/order-weather-insights/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	limiter := rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), cfg.UpstreamBurst)
	client := openmeteo.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, limiter, logger)
	cached := weather.NewCachedProvider(client, cfg.CacheSize, cfg.CacheTTL, domain.Clock(), metrics)
	fetcher := weather.NewFetcher(cached, logger, metrics, weather.FetcherOptions{
		BatchSize:      cfg.FetchBatchSize,
		Concurrency:    cfg.FetchConcurrency,
		RequestTimeout: cfg.UpstreamTimeout,
	})
	logger.Info("weather provider ready",
		"base_url", cfg.UpstreamBaseURL,
		"cache_size", cfg.CacheSize,
		"cache_ttl", cfg.CacheTTL,
	)

	ready := httpapi.ReadinessFunc(func(_ context.Context) error { return nil })
	srv := httpapi.NewServer(cfg.HTTPAddr, fetcher, ready, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
