package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/joshianirudh/context-engine/pkg/postgres"
)

// Store is the read side of the document collection in PostgreSQL. The
// ingestion service owns the writes; the searcher rebuilds its index from
// Store.All. Expected schema:
//
//	CREATE TABLE documents (
//	    id              TEXT PRIMARY KEY,
//	    title           TEXT NOT NULL,
//	    body            TEXT NOT NULL,
//	    tags            TEXT[] NOT NULL DEFAULT '{}',
//	    access_level    INT NOT NULL DEFAULT 0,
//	    idempotency_key TEXT UNIQUE,
//	    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a Store backed by the given database client.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "corpus-store"),
	}
}

// All returns the full document collection in creation order. A limit > 0
// caps the number of documents returned.
func (s *Store) All(ctx context.Context, limit int) ([]Document, error) {
	query := `SELECT id, title, body, tags, access_level FROM documents ORDER BY created_at, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var tags pq.StringArray
		if err := rows.Scan(&d.ID, &d.Title, &d.Body, &tags, &d.AccessLevel); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		d.Tags = []string(tags)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	s.logger.Debug("loaded corpus", "documents", len(docs))
	return docs, nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.DB.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}
