package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func feed(t *testing.T, agg *Aggregator, event any) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshaling event: %v", err)
	}
	if err := HandleEvent(agg)(context.Background(), nil, payload); err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
}

func TestAggregatorSearchEvents(t *testing.T) {
	agg := NewAggregator()

	feed(t, agg, SearchEvent{
		Type: EventSearch, Query: "context retrieval", TotalHits: 4,
		LatencyMs: 10, CacheHit: true, Timestamp: time.Now(),
	})
	feed(t, agg, SearchEvent{
		Type: EventSearch, Query: "context retrieval", TotalHits: 0,
		LatencyMs: 30, ZeroResult: true, Timestamp: time.Now(),
	})
	feed(t, agg, SearchEvent{
		Type: EventSearch, Query: "ranked index", TotalHits: 2,
		LatencyMs: 20, AccessRestricted: true, AccessLevel: 1, Timestamp: time.Now(),
	})

	stats := agg.Stats()
	if stats.TotalSearches != 3 {
		t.Errorf("TotalSearches = %d, want 3", stats.TotalSearches)
	}
	if stats.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", stats.CacheHits)
	}
	if stats.CacheMisses != 2 {
		t.Errorf("CacheMisses = %d, want 2", stats.CacheMisses)
	}
	if stats.ZeroResultCount != 1 {
		t.Errorf("ZeroResultCount = %d, want 1", stats.ZeroResultCount)
	}
	if stats.RestrictedSearches != 1 {
		t.Errorf("RestrictedSearches = %d, want 1", stats.RestrictedSearches)
	}
	if stats.AvgLatencyMs != 20 {
		t.Errorf("AvgLatencyMs = %v, want 20", stats.AvgLatencyMs)
	}

	if len(stats.TopQueries) != 2 {
		t.Fatalf("TopQueries has %d entries, want 2", len(stats.TopQueries))
	}
	if stats.TopQueries[0].Query != "context retrieval" || stats.TopQueries[0].Count != 2 {
		t.Errorf("TopQueries[0] = %+v, want {context retrieval 2}", stats.TopQueries[0])
	}
	if len(stats.ZeroResultQueries) != 1 || stats.ZeroResultQueries[0].Query != "context retrieval" {
		t.Errorf("ZeroResultQueries = %+v, want the zero-hit query", stats.ZeroResultQueries)
	}
}

func TestAggregatorIngestEvents(t *testing.T) {
	agg := NewAggregator()

	feed(t, agg, IngestEvent{Type: EventDocumentIngested, DocumentID: "doc-1", Chunks: 3})
	feed(t, agg, IngestEvent{Type: EventDocumentIngested, DocumentID: "doc-2"})

	stats := agg.Stats()
	if stats.TotalDocsIngested != 2 {
		t.Errorf("TotalDocsIngested = %d, want 2", stats.TotalDocsIngested)
	}
	// A document without chunk info still counts as one stored row.
	if stats.TotalChunksStored != 4 {
		t.Errorf("TotalChunksStored = %d, want 4", stats.TotalChunksStored)
	}
}

func TestAggregatorRebuildEvents(t *testing.T) {
	agg := NewAggregator()

	feed(t, agg, RebuildEvent{Type: EventIndexRebuild, Version: 1, Docs: 10, Trigger: "startup"})
	feed(t, agg, RebuildEvent{Type: EventIndexRebuild, Version: 2, Docs: 12, Trigger: "event"})

	stats := agg.Stats()
	if stats.Rebuilds != 2 {
		t.Errorf("Rebuilds = %d, want 2", stats.Rebuilds)
	}
	if stats.LastRebuildVersion != 2 {
		t.Errorf("LastRebuildVersion = %d, want 2", stats.LastRebuildVersion)
	}
	if stats.LastRebuildDocs != 12 {
		t.Errorf("LastRebuildDocs = %d, want 12", stats.LastRebuildDocs)
	}
}

func TestAggregatorMalformedEvent(t *testing.T) {
	agg := NewAggregator()

	// A bad message must not return an error, or the consumer group would
	// retry it forever.
	if err := HandleEvent(agg)(context.Background(), nil, []byte("{not json")); err != nil {
		t.Errorf("HandleEvent returned error for malformed payload: %v", err)
	}
	if err := HandleEvent(agg)(context.Background(), nil, []byte(`{"type":"mystery"}`)); err != nil {
		t.Errorf("HandleEvent returned error for unknown type: %v", err)
	}

	stats := agg.Stats()
	if stats.TotalSearches != 0 || stats.TotalDocsIngested != 0 || stats.Rebuilds != 0 {
		t.Errorf("malformed events mutated stats: %+v", stats)
	}
}

func TestAggregatorLatencyPercentiles(t *testing.T) {
	agg := NewAggregator()
	for i := 1; i <= 100; i++ {
		feed(t, agg, SearchEvent{Type: EventSearch, Query: "q", TotalHits: 1, LatencyMs: int64(i)})
	}

	stats := agg.Stats()
	if stats.P50LatencyMs != 51 {
		t.Errorf("P50LatencyMs = %d, want 51", stats.P50LatencyMs)
	}
	if stats.P95LatencyMs != 96 {
		t.Errorf("P95LatencyMs = %d, want 96", stats.P95LatencyMs)
	}
	if stats.P99LatencyMs != 100 {
		t.Errorf("P99LatencyMs = %d, want 100", stats.P99LatencyMs)
	}
	if stats.QueriesPerMinute <= 0 {
		t.Errorf("QueriesPerMinute = %v, want > 0", stats.QueriesPerMinute)
	}
}

func TestTopNOrdering(t *testing.T) {
	counts := map[string]int64{"beta": 2, "alpha": 2, "gamma": 1}
	top := topN(counts, 10)

	want := []QueryCount{{"alpha", 2}, {"beta", 2}, {"gamma", 1}}
	if len(top) != len(want) {
		t.Fatalf("topN returned %d entries, want %d", len(top), len(want))
	}
	for i := range want {
		if top[i] != want[i] {
			t.Errorf("topN[%d] = %+v, want %+v", i, top[i], want[i])
		}
	}

	if got := topN(counts, 2); len(got) != 2 {
		t.Errorf("topN with n=2 returned %d entries", len(got))
	}
}
