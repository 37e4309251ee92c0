// Command ingestion starts the document ingestion HTTP service.
//
// The service accepts documents via POST /api/v1/documents, validates
// them, optionally splits large bodies into chunks, persists everything
// to PostgreSQL, and publishes a corpus-update event to Kafka so the
// searcher schedules an index rebuild.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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
	batch "github.com/joshianirudh/context-engine/internal/analytics/collector"
	"github.com/joshianirudh/context-engine/internal/ingestion/handler"
	"github.com/joshianirudh/context-engine/internal/ingestion/publisher"
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
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		stopMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer stopMetrics(context.Background())
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	updatesProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusUpdates)
	defer updatesProducer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.CorpusUpdates)

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	var sink analytics.Sink = analyticsProducer
	if cfg.Analytics.BatchSize > 1 {
		bc := batch.NewBatchCollector(analyticsProducer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		bc.Start(ctx)
		defer bc.Close()
		sink = bc
	}
	collector := analytics.NewCollector(sink, cfg.Analytics.BufferSize)
	collector.Start(ctx)
	defer collector.Close()

	pub := publisher.New(db, updatesProducer, m)
	h := handler.New(pub, collector)

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
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

	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("ingestion service stopped")
}
