package analytics

import "time"

type EventType string

const (
	EventSearch           EventType = "search"
	EventCacheHit         EventType = "cache_hit"
	EventCacheMiss        EventType = "cache_miss"
	EventZeroResult       EventType = "zero_result"
	EventDocumentIngested EventType = "document_ingested"
	EventIndexRebuild     EventType = "index_rebuild"
)

// SearchEvent records one executed search. AccessLevel is meaningful only
// when AccessRestricted is true.
type SearchEvent struct {
	Type             EventType `json:"type"`
	Query            string    `json:"query"`
	Terms            []string  `json:"terms"`
	TotalHits        int       `json:"total_hits"`
	Returned         int       `json:"returned"`
	LatencyMs        int64     `json:"latency_ms"`
	CacheHit         bool      `json:"cache_hit"`
	AccessRestricted bool      `json:"access_restricted"`
	AccessLevel      int       `json:"access_level"`
	ZeroResult       bool      `json:"zero_result"`
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
}

// IngestEvent records one document accepted by the ingestion service.
type IngestEvent struct {
	Type        EventType `json:"type"`
	DocumentID  string    `json:"document_id"`
	AccessLevel int       `json:"access_level"`
	Chunks      int       `json:"chunks"`
	SizeBytes   int       `json:"size_bytes"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}

// RebuildEvent records one completed index rebuild.
type RebuildEvent struct {
	Type       EventType `json:"type"`
	Version    uint64    `json:"version"`
	Docs       int       `json:"docs"`
	Terms      int       `json:"terms"`
	DurationMs int64     `json:"duration_ms"`
	Trigger    string    `json:"trigger"`
	Timestamp  time.Time `json:"timestamp"`
}
