package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joshianirudh/context-engine/internal/auth/apikey"
	"github.com/joshianirudh/context-engine/internal/corpus"
	"github.com/joshianirudh/context-engine/internal/searcher"
	"github.com/joshianirudh/context-engine/pkg/middleware"
	"github.com/joshianirudh/context-engine/pkg/resilience"
)

func sampleDocs() []corpus.Document {
	return []corpus.Document{
		{
			ID:          "doc1",
			Title:       "Intro to Retrieval-Augmented Generation",
			Body:        "RAG connects LLMs to external knowledge bases.",
			AccessLevel: 1,
		},
		{
			ID:          "doc2",
			Title:       "Context engineering best practices",
			Body:        "Chunking, retrieval, and prompting work together.",
			AccessLevel: 2,
		},
		{
			ID:          "doc3",
			Title:       "Private customer runbook",
			Body:        "Contains sensitive onboarding steps for enterprise customers.",
			AccessLevel: 3,
		},
	}
}

func testEngine(t *testing.T, ready bool) *searcher.Engine {
	t.Helper()
	e := searcher.NewEngine(searcher.EngineConfig{
		Source: searcher.SourceFunc(func(ctx context.Context) ([]corpus.Document, error) {
			return sampleDocs(), nil
		}),
	})
	if ready {
		if _, err := e.Rebuild(context.Background(), "startup"); err != nil {
			t.Fatalf("Rebuild: %v", err)
		}
	}
	return e
}

func newTestHandler(t *testing.T, ready bool) *Handler {
	t.Helper()
	return New(testEngine(t, ready), nil, nil, nil, 5, 100)
}

func doGet(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) searcher.Response {
	t.Helper()
	var resp searcher.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestSearchMissingQuery(t *testing.T) {
	h := newTestHandler(t, true)
	rec := doGet(h.Search, "/api/v1/search")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchInvalidLimit(t *testing.T) {
	h := newTestHandler(t, true)
	for _, limit := range []string{"abc", "0", "-1", "1.5"} {
		rec := doGet(h.Search, "/api/v1/search?q=retrieval&limit="+limit)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestSearchNotReady(t *testing.T) {
	h := newTestHandler(t, false)
	rec := doGet(h.Search, "/api/v1/search?q=retrieval")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSearchOK(t *testing.T) {
	h := newTestHandler(t, true)
	rec := doGet(h.Search, "/api/v1/search?q=retrieval")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	resp := decodeResponse(t, rec)
	if resp.TotalHits != 2 {
		t.Errorf("total_hits = %d, want 2", resp.TotalHits)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("returned %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].DocID != "doc1" {
		t.Errorf("top result = %s, want doc1", resp.Results[0].DocID)
	}
	if resp.Results[0].Title == "" {
		t.Error("top result missing title")
	}
}

func TestSearchLimitClamped(t *testing.T) {
	h := New(testEngine(t, true), nil, nil, nil, 5, 1)
	rec := doGet(h.Search, "/api/v1/search?q=retrieval&limit=50")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if len(resp.Results) != 1 {
		t.Errorf("returned %d results, want 1 (clamped)", len(resp.Results))
	}
	if resp.TotalHits != 2 {
		t.Errorf("total_hits = %d, want 2", resp.TotalHits)
	}
}

func TestSearchPunctuationOnlyQuery(t *testing.T) {
	h := newTestHandler(t, true)
	rec := doGet(h.Search, "/api/v1/search?q=%21%21%21")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.TotalHits != 0 || len(resp.Results) != 0 {
		t.Errorf("hits=%d results=%d, want 0/0", resp.TotalHits, len(resp.Results))
	}
}

func TestSearchZeroResults(t *testing.T) {
	h := newTestHandler(t, true)
	rec := doGet(h.Search, "/api/v1/search?q=zebra")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.TotalHits != 0 {
		t.Errorf("total_hits = %d, want 0", resp.TotalHits)
	}
}

func TestSearchAccessLevelParam(t *testing.T) {
	h := newTestHandler(t, true)

	rec := doGet(h.Search, "/api/v1/search?q=customers&access_level=1")
	if resp := decodeResponse(t, rec); resp.TotalHits != 0 {
		t.Errorf("access_level=1: total_hits = %d, want 0", resp.TotalHits)
	}

	rec = doGet(h.Search, "/api/v1/search?q=customers&access_level=3")
	if resp := decodeResponse(t, rec); resp.TotalHits != 1 {
		t.Errorf("access_level=3: total_hits = %d, want 1", resp.TotalHits)
	}

	// No parameter means unrestricted.
	rec = doGet(h.Search, "/api/v1/search?q=customers")
	if resp := decodeResponse(t, rec); resp.TotalHits != 1 {
		t.Errorf("no access_level: total_hits = %d, want 1", resp.TotalHits)
	}
}

func TestSearchAccessLevelInvalid(t *testing.T) {
	h := newTestHandler(t, true)
	for _, lvl := range []string{"abc", "-1", "2.5"} {
		rec := doGet(h.Search, "/api/v1/search?q=retrieval&access_level="+lvl)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("access_level=%s: status = %d, want 400", lvl, rec.Code)
		}
	}
}

func TestSearchKeyCeilingCapsAccessLevel(t *testing.T) {
	h := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=customers&access_level=3", nil)
	req = req.WithContext(middleware.WithKeyInfo(req.Context(), &apikey.KeyInfo{
		ID:          "key-1",
		Name:        "reader",
		AccessLevel: 1,
	}))
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.TotalHits != 0 {
		t.Errorf("total_hits = %d, want 0 (param capped to key ceiling 1)", resp.TotalHits)
	}
}

func TestSearchKeyCeilingAppliesWithoutParam(t *testing.T) {
	h := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=customers", nil)
	req = req.WithContext(middleware.WithKeyInfo(req.Context(), &apikey.KeyInfo{
		ID:          "key-2",
		Name:        "admin",
		AccessLevel: 3,
	}))
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if resp := decodeResponse(t, rec); resp.TotalHits != 1 {
		t.Errorf("total_hits = %d, want 1 (key at level 3 sees doc3)", resp.TotalHits)
	}
}

func TestReindex(t *testing.T) {
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reindex", nil)
	rec := httptest.NewRecorder()
	h.Reindex(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["docs"] != float64(3) {
		t.Errorf("docs = %v, want 3", body["docs"])
	}

	// The engine is now ready and searches succeed.
	rec = doGet(h.Search, "/api/v1/search?q=retrieval")
	if rec.Code != http.StatusOK {
		t.Errorf("post-reindex search status = %d, want 200", rec.Code)
	}
}

func TestReindexSourceFailure(t *testing.T) {
	e := searcher.NewEngine(searcher.EngineConfig{
		Source: searcher.SourceFunc(func(ctx context.Context) ([]corpus.Document, error) {
			return nil, errors.New("db down")
		}),
		Retry: resilience.RetryConfig{MaxAttempts: 1},
	})
	h := New(e, nil, nil, nil, 5, 100)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reindex", nil)
	rec := httptest.NewRecorder()
	h.Reindex(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestIndexStats(t *testing.T) {
	h := newTestHandler(t, false)
	rec := doGet(h.IndexStats, "/api/v1/index/stats")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready: status = %d, want 503", rec.Code)
	}

	h = newTestHandler(t, true)
	rec = doGet(h.IndexStats, "/api/v1/index/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["docs"] != float64(3) {
		t.Errorf("docs = %v, want 3", body["docs"])
	}
	if body["version"] != float64(1) {
		t.Errorf("version = %v, want 1", body["version"])
	}
}

func TestCacheEndpointsDisabled(t *testing.T) {
	h := newTestHandler(t, true)

	rec := doGet(h.CacheStats, "/api/v1/cache/stats")
	if rec.Code != http.StatusOK {
		t.Errorf("cache stats status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "disabled" {
		t.Errorf("cache stats status field = %q, want disabled", body["status"])
	}

	rec = doGet(h.CacheInvalidate, "/api/v1/cache/invalidate")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("cache invalidate status = %d, want 503", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, true)
	rec := doGet(h.Health, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
