// Package ingestion defines the request/response types and Kafka event
// schemas used by the document ingestion pipeline.
package ingestion

import "time"

// ChunkOptions asks the ingestion service to split the document body into
// chunks before storage. Size and Overlap are measured in characters;
// zero values fall back to the chunker defaults.
type ChunkOptions struct {
	Strategy string `json:"strategy"`
	Size     int    `json:"size,omitempty"`
	Overlap  int    `json:"overlap,omitempty"`
}

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
// ID is optional; a UUID is generated when empty. Re-using an existing ID
// replaces that document. Chunk is optional; when set, the body is split
// and each chunk is stored as its own searchable document.
type IngestRequest struct {
	ID             string        `json:"id,omitempty"`
	Title          string        `json:"title"`
	Body           string        `json:"body"`
	Tags           []string      `json:"tags,omitempty"`
	AccessLevel    int           `json:"access_level"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	Chunk          *ChunkOptions `json:"chunk,omitempty"`
}

// IngestResponse is returned to the caller after a document is accepted.
// Chunks is the number of stored rows (1 for an unchunked document).
type IngestResponse struct {
	DocumentID string   `json:"document_id"`
	Status     string   `json:"status"`
	Chunks     int      `json:"chunks"`
	ChunkIDs   []string `json:"chunk_ids,omitempty"`
}

// CorpusUpdate is the Kafka message payload produced after documents are
// persisted. The searcher consumes these to schedule an index rebuild.
type CorpusUpdate struct {
	DocumentID  string    `json:"document_id"`
	Op          string    `json:"op"`
	Chunks      int       `json:"chunks"`
	AccessLevel int       `json:"access_level"`
	IngestedAt  time.Time `json:"ingested_at"`
}
