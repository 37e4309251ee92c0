// Package router wires up all API gateway routes and applies the middleware
// chain (RequestID → CORS → Metrics → Auth → RateLimit).
package router

import (
	"net/http"

	"github.com/joshianirudh/context-engine/internal/auth/apikey"
	"github.com/joshianirudh/context-engine/internal/auth/ratelimit"
	gwhandler "github.com/joshianirudh/context-engine/internal/gateway/handler"
	"github.com/joshianirudh/context-engine/pkg/metrics"
	"github.com/joshianirudh/context-engine/pkg/middleware"
)

// New builds the full gateway HTTP handler with all routes and middleware.
// A nil validator disables authentication and rate limiting; m may be nil.
//
// Route table:
//
//	POST   /api/v1/documents           → ingestion service (proxy)
//	GET    /api/v1/documents           → list documents    (direct DB)
//	GET    /api/v1/documents/{id}      → get document      (direct DB)
//	GET    /api/v1/search              → search service    (proxy)
//	POST   /api/v1/reindex             → search service    (proxy)
//	GET    /api/v1/index/stats         → search service    (proxy)
//	GET    /api/v1/analytics           → analytics service (proxy)
//	GET    /api/v1/analytics/history   → analytics service (proxy)
//	GET    /api/v1/cache/stats         → search service    (proxy)
//	POST   /api/v1/cache/invalidate    → search service    (proxy)
//	POST   /api/v1/admin/keys          → create API key    (direct DB)
//	GET    /api/v1/admin/keys          → list API keys     (direct DB)
//	GET    /health                     → gateway health
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Auth → RateLimit → handler
func New(h *gwhandler.Handler, validator *apikey.Validator, limiter *ratelimit.Limiter, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	// Health (unauthenticated)
	mux.HandleFunc("GET /health", h.Health)

	// Document API
	mux.HandleFunc("POST /api/v1/documents", h.ProxyIngest)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)

	// Search API
	mux.HandleFunc("GET /api/v1/search", h.ProxySearch)
	mux.HandleFunc("POST /api/v1/reindex", h.ProxyReindex)
	mux.HandleFunc("GET /api/v1/index/stats", h.ProxyIndexStats)

	// Analytics API
	mux.HandleFunc("GET /api/v1/analytics", h.ProxyAnalytics)
	mux.HandleFunc("GET /api/v1/analytics/history", h.ProxyAnalytics)

	// Cache API
	mux.HandleFunc("GET /api/v1/cache/stats", h.ProxyCacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.ProxyCacheInvalidate)

	// Admin API
	mux.HandleFunc("POST /api/v1/admin/keys", h.CreateAPIKey)
	mux.HandleFunc("GET /api/v1/admin/keys", h.ListAPIKeys)

	// Middleware chain — applied inside-out:
	// request → RequestID → CORS → Metrics → Auth → RateLimit → mux
	var chain http.Handler = mux
	if validator != nil {
		if limiter != nil {
			chain = middleware.RateLimit(limiter, m)(chain)
		}
		chain = middleware.Auth(validator)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	return chain
}
