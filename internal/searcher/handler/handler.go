// Package handler exposes the searcher's HTTP surface: search, index
// stats, manual reindex, and cache administration.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joshianirudh/context-engine/internal/analytics"
	"github.com/joshianirudh/context-engine/internal/index/tokenizer"
	"github.com/joshianirudh/context-engine/internal/search"
	"github.com/joshianirudh/context-engine/internal/searcher"
	"github.com/joshianirudh/context-engine/internal/searcher/cache"
	apperrors "github.com/joshianirudh/context-engine/pkg/errors"
	"github.com/joshianirudh/context-engine/pkg/logger"
	"github.com/joshianirudh/context-engine/pkg/metrics"
	"github.com/joshianirudh/context-engine/pkg/middleware"
)

// SearchEngine is the slice of the searcher engine the handler needs.
type SearchEngine interface {
	Search(ctx context.Context, query string, limit int, access search.AccessContext) (*searcher.Response, error)
	Snapshot() *searcher.Snapshot
	Rebuild(ctx context.Context, trigger string) (*searcher.Snapshot, error)
}

type Handler struct {
	engine       SearchEngine
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New creates a Handler. cache, collector, and m may all be nil; the
// corresponding features are skipped.
func New(engine SearchEngine, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		engine:       engine,
		cache:        queryCache,
		collector:    collector,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	access, err := accessFromRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := h.engine.Snapshot()
	if snap == nil {
		h.observeQuery("error", "none", 0, start)
		h.writeError(w, http.StatusServiceUnavailable, "index is not ready")
		return
	}

	terms := tokenizer.Tokenize(query)
	if len(terms) == 0 {
		h.writeJSON(w, http.StatusOK, &searcher.Response{
			Query:     query,
			Results:   []searcher.Hit{},
			TermStats: map[string]int{},
			Version:   snap.Version,
		})
		return
	}

	var resp *searcher.Response
	cacheHit := false
	cacheStatus := "bypass"

	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, access, func() (*searcher.Response, error) {
			return h.engine.Search(ctx, query, limit, access)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		resp, err = h.engine.Search(ctx, query, limit, access)
	}

	if err != nil {
		h.observeQuery("error", cacheStatus, 0, start)
		if errors.Is(err, apperrors.ErrIndexNotReady) {
			h.writeError(w, http.StatusServiceUnavailable, "index is not ready")
			return
		}
		log.Error("search execution failed", "query", query, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	resultType := "ok"
	if resp.TotalHits == 0 {
		resultType = "zero_result"
	}
	h.observeQuery(resultType, cacheStatus, len(resp.Results), start)

	log.Info("search completed",
		"query", query,
		"total_hits", resp.TotalHits,
		"returned", len(resp.Results),
		"access", access.String(),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)

	if h.collector != nil {
		eventType := analytics.EventCacheMiss
		if cacheHit {
			eventType = analytics.EventCacheHit
		}
		if resp.TotalHits == 0 {
			eventType = analytics.EventZeroResult
		}
		h.collector.TrackSearch(analytics.SearchEvent{
			Type:             eventType,
			Query:            query,
			Terms:            terms,
			TotalHits:        resp.TotalHits,
			Returned:         len(resp.Results),
			LatencyMs:        latencyMs,
			CacheHit:         cacheHit,
			AccessRestricted: access.Restricted(),
			AccessLevel:      access.Level(),
			ZeroResult:       resp.TotalHits == 0,
			Timestamp:        time.Now().UTC(),
			RequestID:        middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Reindex rebuilds the index from the corpus source and swaps it in.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, err := h.engine.Rebuild(r.Context(), "manual")
	if err != nil {
		h.logger.Error("manual reindex failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "reindex failed")
		return
	}

	if h.collector != nil {
		h.collector.TrackRebuild(analytics.RebuildEvent{
			Type:       analytics.EventIndexRebuild,
			Version:    snap.Version,
			Docs:       snap.Index.DocCount(),
			Terms:      snap.Index.TermCount(),
			DurationMs: time.Since(start).Milliseconds(),
			Trigger:    "manual",
			Timestamp:  time.Now().UTC(),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  snap.Version,
		"docs":     snap.Index.DocCount(),
		"terms":    snap.Index.TermCount(),
		"built_at": snap.BuiltAt,
	})
}

// IndexStats reports the live snapshot's size and most frequent terms.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		h.writeError(w, http.StatusServiceUnavailable, "index is not ready")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"version":   snap.Version,
		"built_at":  snap.BuiltAt,
		"docs":      snap.Index.DocCount(),
		"terms":     snap.Index.TermCount(),
		"top_terms": snap.Index.TopTerms(10),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// accessFromRequest resolves the effective access context: the API key's
// access level is the ceiling, and an explicit access_level parameter may
// narrow it but never widen it. Unauthenticated requests without the
// parameter are unrestricted.
func accessFromRequest(r *http.Request) (search.AccessContext, error) {
	access := search.Unrestricted()
	var ceiling *int
	if info := middleware.GetKeyInfo(r.Context()); info != nil {
		lvl := info.AccessLevel
		ceiling = &lvl
		access = search.AccessAt(lvl)
	}
	if raw := r.URL.Query().Get("access_level"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return search.AccessContext{}, errors.New("access_level must be a non-negative integer")
		}
		if ceiling != nil && parsed > *ceiling {
			parsed = *ceiling
		}
		access = search.AccessAt(parsed)
	}
	return access, nil
}

func (h *Handler) observeQuery(resultType, cacheStatus string, results int, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.Observe(float64(results))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
