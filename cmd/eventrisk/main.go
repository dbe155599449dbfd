// Command eventrisk serves the event rain-risk UI over a websocket: location
// suggestions, the event form, and forecast submissions, one session per
// connection.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/event-risk-client/internal/adapter/forecast"
	"github.com/couchcryptid/event-risk-client/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/event-risk-client/internal/adapter/kafka"
	"github.com/couchcryptid/event-risk-client/internal/adapter/openmeteo"
	"github.com/couchcryptid/event-risk-client/internal/config"
	"github.com/couchcryptid/event-risk-client/internal/observability"
	"github.com/couchcryptid/event-risk-client/internal/resolver"
	"github.com/couchcryptid/event-risk-client/internal/session"
	"github.com/couchcryptid/event-risk-client/internal/submission"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geoClient := openmeteo.NewClient(cfg, metrics, logger)
	geocoder := openmeteo.NewCachedGeocoder(geoClient, cfg.GeocodingCacheSize, metrics)
	logger.Info("geocoding configured",
		"url", cfg.GeocodingURL,
		"cache_size", cfg.GeocodingCacheSize,
		"rate_limit", cfg.GeocodingRateLimit,
	)

	forecastClient := forecast.NewClient(cfg.ForecastBaseURL, cfg.ForecastTimeout, logger)
	if cfg.ForecastBaseURL == "" {
		logger.Info("forecast service routed relative to the page origin")
	}

	// Outcome stream (feature-flagged via KAFKA_ENABLED).
	var recorder submission.Recorder
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		recorder = writer
		logger.Info("submission outcome stream enabled", "topic", cfg.KafkaOutcomeTopic)
	}

	manager := session.NewManager(session.Deps{
		Geocoder: geocoder,
		Forecast: forecastClient,
		Recorder: recorder,
		Resolver: resolver.Settings{
			Debounce:       cfg.DebounceInterval,
			MinQueryLength: cfg.MinQueryLength,
		},
		Logger:        logger,
		Metrics:       metrics,
		RecordTimeout: cfg.KafkaWriteTimeout,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, manager, cfg.CORSAllowedOrigins, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closed := make(chan struct{})
	go func() {
		manager.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-shutdownCtx.Done():
		logger.Warn("sessions did not drain before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
