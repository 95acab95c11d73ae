package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	boltstore "github.com/couchcryptid/quake-data-etl/internal/adapter/bolt"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/koeri"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/refdata"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/geo"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
	"github.com/couchcryptid/quake-data-etl/internal/scoring"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		return 1
	}
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reference data is immutable for the life of the process.
	engine, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load reference data", "error", err)
		return 1
	}

	feed, err := koeri.NewClient(cfg.FeedURL, cfg.FeedTimeout, cfg.FeedCharset, logger)
	if err != nil {
		logger.Error("failed to create feed client", "error", err)
		return 1
	}

	store, err := boltstore.Open(cfg.BoltPath)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.BoltPath, "error", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("bolt close error", "error", err)
		}
	}()

	var events pipeline.EventStore = store
	if cfg.EventSink == config.SinkKafka {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		events = writer
	}
	logger.Info("event sink configured", "sink", cfg.EventSink, "bolt_path", cfg.BoltPath)

	orch := pipeline.New(feed, pipeline.NewEnricher(engine, logger), events, store, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, orch, prometheus.DefaultGatherer, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		logger.Info("shutdown complete")
	}()

	if cfg.RunSchedule == "" {
		if _, err := orch.RunOnce(ctx); err != nil {
			return 1
		}
		return 0
	}

	sched, err := pipeline.NewScheduler(cfg.RunSchedule, orch, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		return 1
	}
	// Run immediately so readiness does not wait for the first tick.
	_, _ = orch.RunOnce(ctx)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return 1
	}
	logger.Info("shutting down")
	return 0
}

func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*scoring.Engine, error) {
	loadCtx, cancel := context.WithTimeout(ctx, cfg.RefDataTimeout)
	defer cancel()

	loader := refdata.NewLoader(objectstore.New(cfg.RefDataTimeout), logger)
	ref, err := loader.Load(loadCtx, refdata.Sources{
		SettlementsURI:  cfg.SettlementsURI,
		LandURI:         cfg.LandURI,
		LandAxisOrder:   cfg.LandAxisOrder,
		CoefficientsURI: cfg.CoefficientsURI,
		Filter: refdata.SettlementFilter{
			Country:  cfg.SettlementCountry,
			Features: cfg.SettlementIndexCodes,
		},
	})
	if err != nil {
		return nil, err
	}

	index := geo.NewSettlementIndex(ref.Settlements,
		geo.WithAffectedFeatures(cfg.AffectedFeatureCodes),
		geo.WithCountry(cfg.SettlementCountry),
	)
	return scoring.NewEngine(index, ref.Land, ref.Model, cfg.TTL), nil
}
