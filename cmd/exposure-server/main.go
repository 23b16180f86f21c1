package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-exposure/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/storm-exposure/internal/adapter/kafka"
	"github.com/couchcryptid/storm-exposure/internal/catalog"
	"github.com/couchcryptid/storm-exposure/internal/config"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // optional .env for local development

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	cat, err := catalog.Load(cfg.CatalogDir, logger)
	if err != nil {
		logger.Error("failed to load hazard catalog", "dir", cfg.CatalogDir, "error", err)
		os.Exit(1)
	}
	wind, rain, dist := cat.Counts()
	metrics.CatalogRecords.WithLabelValues("wind").Set(float64(wind))
	metrics.CatalogRecords.WithLabelValues("rain").Set(float64(rain))
	metrics.CatalogRecords.WithLabelValues("distance").Set(float64(dist))

	engine := exposure.NewEngine(cat, logger, metrics)

	// Exposure publishing is feature-flagged via KAFKA_ENABLED.
	var publisher httpapi.RowPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger, metrics)
		publisher = kafkaPublisher
		logger.Info("exposure publishing enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("exposure publishing disabled")
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, engine, cat, publisher, logger)

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
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
