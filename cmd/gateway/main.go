// Command gateway starts the API gateway service.
//
// The gateway is the single entry point for external clients. It authenticates
// requests via API keys (SHA-256 validated against PostgreSQL), applies
// per-key rate limiting, and proxies requests to the ingestion, search, and
// analytics services. It also exposes admin endpoints for API key management
// and direct document-retrieval endpoints backed by PostgreSQL.
//
// Usage:
//
//	go run ./cmd/gateway [-config configs/development.yaml]
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

	"github.com/joshianirudh/context-engine/internal/auth/apikey"
	"github.com/joshianirudh/context-engine/internal/auth/ratelimit"
	gwhandler "github.com/joshianirudh/context-engine/internal/gateway/handler"
	"github.com/joshianirudh/context-engine/internal/gateway/router"
	"github.com/joshianirudh/context-engine/pkg/config"
	"github.com/joshianirudh/context-engine/pkg/logger"
	"github.com/joshianirudh/context-engine/pkg/metrics"
	"github.com/joshianirudh/context-engine/pkg/postgres"
)

// main initialises PostgreSQL, the API-key validator, the rate limiter, the
// gateway handler + router middleware chain, and starts the HTTP server.
// Graceful shutdown is triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting gateway service",
		"port", cfg.Gateway.Port,
		"ingestion_url", cfg.Gateway.IngestionURL,
		"searcher_url", cfg.Gateway.SearcherURL,
		"analytics_url", cfg.Gateway.AnalyticsURL,
		"auth_enabled", cfg.Auth.Enabled,
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		stopMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer stopMetrics(context.Background())
	}

	// PostgreSQL — shared by API key management and document retrieval.
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	// The validator always exists so admin endpoints can mint keys before
	// authentication is switched on; the Auth middleware itself is only
	// installed when enabled.
	validator := apikey.NewValidator(db)

	var authValidator *apikey.Validator
	var limiter *ratelimit.Limiter
	if cfg.Auth.Enabled {
		authValidator = validator
		limiter = ratelimit.New(time.Minute, cfg.Auth.Burst)
		defer limiter.Stop()
	}

	h := gwhandler.New(gwhandler.Config{
		IngestionURL: cfg.Gateway.IngestionURL,
		SearcherURL:  cfg.Gateway.SearcherURL,
		AnalyticsURL: cfg.Gateway.AnalyticsURL,
	}, db, validator)

	chain := router.New(h, authValidator, limiter, m)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("gateway service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway service stopped")
}
