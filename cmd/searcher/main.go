// Command searcher starts the search service.
//
// On startup it loads the document corpus (PostgreSQL or a JSON file),
// builds the in-memory inverted index, and serves ranked keyword queries
// over HTTP. The index is rebuilt wholesale when corpus-update events
// arrive from Kafka, on a periodic refresh interval, and on demand via
// POST /api/v1/reindex. Query results are cached in Redis behind a
// circuit breaker, and every query is reported to the analytics topic.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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
	"time"

	"github.com/joshianirudh/context-engine/internal/analytics"
	batch "github.com/joshianirudh/context-engine/internal/analytics/collector"
	"github.com/joshianirudh/context-engine/internal/auth/apikey"
	"github.com/joshianirudh/context-engine/internal/auth/ratelimit"
	"github.com/joshianirudh/context-engine/internal/corpus"
	"github.com/joshianirudh/context-engine/internal/ingestion"
	"github.com/joshianirudh/context-engine/internal/searcher"
	"github.com/joshianirudh/context-engine/internal/searcher/cache"
	"github.com/joshianirudh/context-engine/internal/searcher/handler"
	"github.com/joshianirudh/context-engine/pkg/config"
	"github.com/joshianirudh/context-engine/pkg/health"
	"github.com/joshianirudh/context-engine/pkg/kafka"
	"github.com/joshianirudh/context-engine/pkg/logger"
	"github.com/joshianirudh/context-engine/pkg/metrics"
	"github.com/joshianirudh/context-engine/pkg/middleware"
	"github.com/joshianirudh/context-engine/pkg/postgres"
	pkgredis "github.com/joshianirudh/context-engine/pkg/redis"
	"github.com/joshianirudh/context-engine/pkg/resilience"
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
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"corpus_source", cfg.Corpus.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		stopMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer stopMetrics(context.Background())
	}

	// PostgreSQL backs the corpus (unless file-sourced) and API key auth.
	var db *postgres.Client
	if cfg.Corpus.Source != "file" || cfg.Auth.Enabled {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("connected to postgres")
	}

	var source searcher.Source
	switch cfg.Corpus.Source {
	case "file":
		path := cfg.Corpus.Path
		source = searcher.SourceFunc(func(ctx context.Context) ([]corpus.Document, error) {
			return corpus.LoadFile(path)
		})
		slog.Info("corpus source: file", "path", path)
	default:
		store := corpus.NewStore(db)
		source = searcher.SourceFunc(func(ctx context.Context) ([]corpus.Document, error) {
			return store.All(ctx, cfg.Corpus.MaxDocuments)
		})
		slog.Info("corpus source: postgres")
	}

	// Query result cache (optional).
	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{})
			queryCache = cache.New(redisClient, cfg.Redis, m, breaker)
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	// Analytics events flow to Kafka, optionally through the batch collector.
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer producer.Close()
	var sink analytics.Sink = producer
	if cfg.Analytics.BatchSize > 1 {
		bc := batch.NewBatchCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		bc.Start(ctx)
		defer bc.Close()
		sink = bc
	}
	collector := analytics.NewCollector(sink, cfg.Analytics.BufferSize)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	engine := searcher.NewEngine(searcher.EngineConfig{
		Source:       source,
		MaxDocuments: cfg.Corpus.MaxDocuments,
		LoadTimeout:  cfg.Corpus.LoadTimeout,
		Metrics:      m,
		OnSwap: func(ctx context.Context, snap *searcher.Snapshot) {
			if queryCache == nil {
				return
			}
			if err := queryCache.Invalidate(ctx); err != nil {
				slog.Warn("cache invalidation after rebuild failed", "error", err)
			}
		},
	})

	// First build. A failure here is not fatal: the service answers 503
	// until a later rebuild succeeds.
	if _, err := engine.Rebuild(ctx, "startup"); err != nil {
		slog.Error("startup index build failed, continuing degraded", "error", err)
	}
	engine.StartRebuildLoop(ctx, cfg.Corpus.RebuildDebounce, cfg.Corpus.RefreshInterval)

	// Corpus updates from the ingestion service schedule rebuilds.
	updates := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CorpusUpdates,
		func(ctx context.Context, key []byte, value []byte) error {
			update, err := kafka.DecodeJSON[ingestion.CorpusUpdate](value)
			if err != nil {
				slog.Error("failed to decode corpus update", "error", err)
				return nil
			}
			slog.Debug("corpus update received",
				"document_id", update.DocumentID,
				"op", update.Op,
			)
			engine.NotifyChange()
			return nil
		})
	go func() {
		if err := updates.Start(ctx); err != nil {
			slog.Error("corpus update consumer error", "error", err)
		}
	}()

	if m != nil && queryCache != nil {
		go sampleBreakerState(ctx, m, queryCache)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		snap := engine.Snapshot()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "index not built yet"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("version %d, %d docs", snap.Version, snap.Index.DocCount()),
		}
	})
	if db != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(engine, queryCache, collector, m, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/reindex", h.Reindex)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if cfg.Tracing.Enabled {
		chain = middleware.Tracing()(chain)
	}
	if cfg.Auth.Enabled && db != nil {
		limiter := ratelimit.New(time.Minute, cfg.Auth.Burst)
		defer limiter.Stop()
		chain = middleware.RateLimit(limiter, m)(chain)
		chain = middleware.Auth(apikey.NewValidator(db))(chain)
		slog.Info("api key auth enabled")
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

// sampleBreakerState periodically exports the Redis circuit breaker state
// to the circuit_breaker_state gauge.
func sampleBreakerState(ctx context.Context, m *metrics.Metrics, qc *cache.QueryCache) {
	breaker := qc.Breaker()
	if breaker == nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CircuitBreakerState.WithLabelValues("redis").Set(breaker.StateValue())
		}
	}
}
