// Command analytics starts the analytics aggregation service.
//
// It consumes search, ingestion, and rebuild events from Kafka, keeps
// rolling statistics in memory (query volume, latency percentiles,
// cache hit rate, zero-result queries), periodically snapshots them to
// PostgreSQL, and serves the aggregates at GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshianirudh/context-engine/internal/analytics"
	aggstore "github.com/joshianirudh/context-engine/internal/analytics/aggregator"
	"github.com/joshianirudh/context-engine/pkg/config"
	"github.com/joshianirudh/context-engine/pkg/health"
	"github.com/joshianirudh/context-engine/pkg/kafka"
	"github.com/joshianirudh/context-engine/pkg/logger"
	"github.com/joshianirudh/context-engine/pkg/metrics"
	"github.com/joshianirudh/context-engine/pkg/middleware"
	"github.com/joshianirudh/context-engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		stopMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer stopMetrics(context.Background())
	}

	agg := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	// Snapshot persistence (optional).
	var snapshots analytics.SnapshotLister
	var db *postgres.Client
	if cfg.Analytics.SnapshotInterval > 0 {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := aggstore.NewStore(db)
		// Counters reset on restart; log where the last run left off so
		// dashboards can reconcile the discontinuity.
		if prev, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("failed to load previous snapshot", "error", err)
		} else if prev != nil {
			slog.Info("previous snapshot found",
				"total_searches", prev.TotalSearches,
				"docs_ingested", prev.TotalDocsIngested,
				"rebuild_version", prev.LastRebuildVersion,
			)
		}
		store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		snapshots = store
	}

	h := analytics.NewHandler(agg, snapshots)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})
	if db != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", h.History)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
