package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joshianirudh/context-engine/pkg/kafka"
)

// maxLatencySamples bounds the latency buffer; when full, the oldest
// half is discarded so percentiles track recent traffic.
const maxLatencySamples = 100000

type AggregatedStats struct {
	TotalSearches      int64        `json:"total_searches"`
	TotalDocsIngested  int64        `json:"total_docs_ingested"`
	TotalChunksStored  int64        `json:"total_chunks_stored"`
	CacheHits          int64        `json:"cache_hits"`
	CacheMisses        int64        `json:"cache_misses"`
	ZeroResultCount    int64        `json:"zero_result_count"`
	RestrictedSearches int64        `json:"restricted_searches"`
	Rebuilds           int64        `json:"rebuilds"`
	LastRebuildVersion uint64       `json:"last_rebuild_version"`
	LastRebuildDocs    int          `json:"last_rebuild_docs"`
	AvgLatencyMs       float64      `json:"avg_latency_ms"`
	P50LatencyMs       int64        `json:"p50_latency_ms"`
	P95LatencyMs       int64        `json:"p95_latency_ms"`
	P99LatencyMs       int64        `json:"p99_latency_ms"`
	TopQueries         []QueryCount `json:"top_queries"`
	ZeroResultQueries  []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute   float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator maintains rolling statistics about search traffic, ingestion,
// and index rebuilds. Feed it by registering HandleEvent as the message
// handler of a Kafka consumer on the analytics topic.
type Aggregator struct {
	mu                 sync.RWMutex
	totalSearches      atomic.Int64
	totalDocsIngested  atomic.Int64
	totalChunksStored  atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
	zeroResults        atomic.Int64
	restrictedSearches atomic.Int64
	rebuilds           atomic.Int64
	lastRebuildVersion atomic.Uint64
	lastRebuildDocs    atomic.Int64
	latencies          []int64
	queryCounts        map[string]int64
	zeroResultQueries  map[string]int64
	startTime          time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 10000),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// envelope carries just enough of any analytics event to dispatch on.
type envelope struct {
	Type EventType `json:"type"`
}

// HandleEvent returns a Kafka MessageHandler that dispatches each event
// by its type field. Undecodable events are logged and skipped so one
// bad message never stalls the consumer group.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}

		switch env.Type {
		case EventSearch, EventCacheHit, EventCacheMiss, EventZeroResult:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.recordSearchEvent(event)
		case EventDocumentIngested:
			event, err := kafka.DecodeJSON[IngestEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode ingest event", "error", err)
				return nil
			}
			agg.recordIngestEvent(event)
		case EventIndexRebuild:
			event, err := kafka.DecodeJSON[RebuildEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode rebuild event", "error", err)
				return nil
			}
			agg.recordRebuildEvent(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", env.Type)
		}
		return nil
	}
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	a.totalSearches.Add(1)

	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.ZeroResult || event.TotalHits == 0 {
		a.zeroResults.Add(1)
	}
	if event.AccessRestricted {
		a.restrictedSearches.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	if len(a.latencies) > maxLatencySamples {
		a.latencies = append(a.latencies[:0], a.latencies[len(a.latencies)/2:]...)
	}
	a.queryCounts[event.Query]++
	if event.ZeroResult || event.TotalHits == 0 {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordIngestEvent(event IngestEvent) {
	a.totalDocsIngested.Add(1)
	chunks := event.Chunks
	if chunks <= 0 {
		chunks = 1
	}
	a.totalChunksStored.Add(int64(chunks))
}

func (a *Aggregator) recordRebuildEvent(event RebuildEvent) {
	a.rebuilds.Add(1)
	a.lastRebuildVersion.Store(event.Version)
	a.lastRebuildDocs.Store(int64(event.Docs))
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:      a.totalSearches.Load(),
		TotalDocsIngested:  a.totalDocsIngested.Load(),
		TotalChunksStored:  a.totalChunksStored.Load(),
		CacheHits:          a.cacheHits.Load(),
		CacheMisses:        a.cacheMisses.Load(),
		ZeroResultCount:    a.zeroResults.Load(),
		RestrictedSearches: a.restrictedSearches.Load(),
		Rebuilds:           a.rebuilds.Load(),
		LastRebuildVersion: a.lastRebuildVersion.Load(),
		LastRebuildDocs:    int(a.lastRebuildDocs.Load()),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
