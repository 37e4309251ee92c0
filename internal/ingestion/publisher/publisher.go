// Package publisher persists documents to PostgreSQL and publishes corpus
// update events to Kafka so the searcher can schedule a rebuild. It
// supports idempotent writes and optional chunked storage, where each
// chunk becomes its own searchable document row.
package publisher

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joshianirudh/context-engine/internal/chunk"
	"github.com/joshianirudh/context-engine/internal/ingestion"
	apperrors "github.com/joshianirudh/context-engine/pkg/errors"
	"github.com/joshianirudh/context-engine/pkg/kafka"
	"github.com/joshianirudh/context-engine/pkg/metrics"
	"github.com/joshianirudh/context-engine/pkg/postgres"
	"github.com/joshianirudh/context-engine/pkg/resilience"
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// docRow is one row headed for the documents table.
type docRow struct {
	id          string
	title       string
	body        string
	tags        []string
	accessLevel int
	idemKey     sql.NullString
}

// Publisher coordinates document persistence and Kafka event production.
// m may be nil.
type Publisher struct {
	db       *postgres.Client
	producer *kafka.Producer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Publisher with the given database and Kafka producer.
func New(db *postgres.Client, producer *kafka.Producer, m *metrics.Metrics) *Publisher {
	return &Publisher{
		db:       db,
		producer: producer,
		metrics:  m,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest persists the document (or its chunks) in PostgreSQL and
// publishes a CorpusUpdate to Kafka. Duplicate idempotency keys are
// detected and answered without re-insertion; re-used document IDs
// replace the stored content.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	if req.IdempotencyKey != "" {
		existing, err := p.findByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			p.observe("error")
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			p.logger.Info("duplicate ingestion detected",
				"idempotency_key", req.IdempotencyKey,
				"existing_id", existing.DocumentID,
			)
			p.observe("duplicate")
			return existing, nil
		}
	}

	docID := req.ID
	if docID == "" {
		docID = uuid.NewString()
	}

	rows, strategy, err := p.buildRows(req, docID)
	if err != nil {
		p.observe("error")
		return nil, err
	}

	err = p.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO documents (id, title, body, tags, access_level, idempotency_key)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (id) DO UPDATE
				 SET title = EXCLUDED.title,
				     body = EXCLUDED.body,
				     tags = EXCLUDED.tags,
				     access_level = EXCLUDED.access_level`,
				row.id, row.title, row.body, pq.Array(row.tags), row.accessLevel, row.idemKey,
			)
			if err != nil {
				if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
					return apperrors.New(apperrors.ErrIdempotencyConflict, 409, "idempotency key already in use")
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.observe("error")
		return nil, fmt.Errorf("inserting document: %w", err)
	}

	p.observe("stored")
	if p.metrics != nil && strategy != "" {
		p.metrics.ChunksCreatedTotal.WithLabelValues(strategy).Add(float64(len(rows)))
	}

	update := kafka.Event{
		Key: docID,
		Value: ingestion.CorpusUpdate{
			DocumentID:  docID,
			Op:          "upsert",
			Chunks:      len(rows),
			AccessLevel: req.AccessLevel,
			IngestedAt:  time.Now().UTC(),
		},
	}
	publishErr := resilience.Retry(ctx, "corpus_update_publish",
		resilience.RetryConfig{MaxAttempts: 2, InitialDelay: 50 * time.Millisecond},
		func() error {
			return p.producer.Publish(ctx, update)
		},
	)
	if publishErr != nil {
		// The rows are stored; the periodic rebuild picks them up even
		// without the event.
		p.logger.Error("failed to publish corpus update",
			"doc_id", docID,
			"error", publishErr,
		)
	}

	resp := &ingestion.IngestResponse{
		DocumentID: docID,
		Status:     "stored",
		Chunks:     len(rows),
	}
	if len(rows) > 1 {
		for _, row := range rows {
			resp.ChunkIDs = append(resp.ChunkIDs, row.id)
		}
	}
	return resp, nil
}

// buildRows turns the request into document rows: a single row, or one
// row per chunk when chunking was requested. The idempotency key is
// stored on the first row only.
func (p *Publisher) buildRows(req *ingestion.IngestRequest, docID string) ([]docRow, string, error) {
	if req.Chunk == nil {
		return []docRow{{
			id:          docID,
			title:       req.Title,
			body:        req.Body,
			tags:        req.Tags,
			accessLevel: req.AccessLevel,
			idemKey:     nullableString(req.IdempotencyKey),
		}}, "", nil
	}

	strategy, err := chunk.ParseStrategy(req.Chunk.Strategy)
	if err != nil {
		return nil, "", apperrors.Newf(apperrors.ErrInvalidInput, 400, "invalid chunk strategy: %v", err)
	}
	chunker := chunk.New(chunk.Config{
		Strategy: strategy,
		Size:     req.Chunk.Size,
		Overlap:  req.Chunk.Overlap,
	})

	pieces := chunker.Split(docID, req.Body)
	if len(pieces) == 0 {
		return nil, "", apperrors.New(apperrors.ErrInvalidInput, 400, "document body has no chunkable content")
	}

	rows := make([]docRow, 0, len(pieces))
	for _, piece := range pieces {
		row := docRow{
			id:          fmt.Sprintf("%s-c%03d", docID, piece.Seq),
			title:       fmt.Sprintf("%s (part %d)", req.Title, piece.Seq+1),
			body:        piece.Text,
			tags:        req.Tags,
			accessLevel: req.AccessLevel,
		}
		if piece.Seq == 0 {
			row.idemKey = nullableString(req.IdempotencyKey)
		}
		rows = append(rows, row)
	}
	return rows, string(strategy), nil
}

// findByIdempotencyKey checks if a document with the given idempotency
// key already exists. For chunked documents the key lives on the first
// chunk row.
func (p *Publisher) findByIdempotencyKey(ctx context.Context, key string) (*ingestion.IngestResponse, error) {
	var id string
	err := p.db.DB.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE idempotency_key = $1`, key).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return &ingestion.IngestResponse{
		DocumentID: id,
		Status:     "duplicate",
		Chunks:     1,
	}, nil
}

func (p *Publisher) observe(outcome string) {
	if p.metrics != nil {
		p.metrics.DocumentsIngested.WithLabelValues(outcome).Inc()
	}
}

// nullableString converts a Go string to a sql.NullString, treating the
// empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
