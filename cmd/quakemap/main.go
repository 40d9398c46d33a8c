package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // DISPLAY_TIMEZONE must resolve in minimal containers

	"github.com/couchcryptid/quake-map-service/internal/adapter/arcgis"
	httpadapter "github.com/couchcryptid/quake-map-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-map-service/internal/adapter/sqlite"
	"github.com/couchcryptid/quake-map-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-map-service/internal/config"
	"github.com/couchcryptid/quake-map-service/internal/observability"
	"github.com/couchcryptid/quake-map-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := usgs.NewClient(cfg.USGSBaseURL, cfg.USGSTimeout, metrics, logger)
	boundaries, err := arcgis.NewCachedSource(
		arcgis.NewClient(cfg.ArcGISBaseURL, cfg.ArcGISTimeout, metrics, logger),
		cfg.ArcGISCacheSize, metrics)
	if err != nil {
		logger.Error("failed to create boundary source", "error", err)
		os.Exit(1)
	}

	opts := []pipeline.Option{
		pipeline.WithLayers(cfg.Layers),
		pipeline.WithLocation(cfg.DisplayTimezone),
		pipeline.WithRefreshInterval(cfg.RefreshInterval),
	}

	// Record set publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	var store *sqlite.Store
	if cfg.SnapshotPath != "" {
		store, err = sqlite.Open(ctx, cfg.SnapshotPath)
		if err != nil {
			logger.Error("failed to open snapshot store", "error", err, "path", cfg.SnapshotPath)
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithSnapshots(store))
		logger.Info("snapshot persistence enabled", "path", cfg.SnapshotPath)
	}

	p := pipeline.New(fetcher, boundaries, logger, metrics, opts...)
	if err := p.Restore(ctx); err != nil {
		logger.Warn("snapshot restore failed", "error", err)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	p.Close()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("snapshot store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
