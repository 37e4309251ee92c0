// Package validator provides input validation for ingestion requests. It
// enforces identifier, title, body, and chunking constraints and returns
// per-field error details.
package validator

import (
	"fmt"
	"strings"

	"github.com/joshianirudh/context-engine/internal/chunk"
	"github.com/joshianirudh/context-engine/internal/ingestion"
)

const (
	maxIDLength    = 255
	maxTitleLength = 1024
	maxBodyLength  = 1048576
	minChunkSize   = 20
	maxChunkSize   = 100000
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks that the request meets all field
// constraints and returns a ValidationError listing every violation.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	if req.ID != "" {
		if len(req.ID) > maxIDLength {
			errs["id"] = fmt.Sprintf("id must be at most %d characters", maxIDLength)
		} else if !validID(req.ID) {
			errs["id"] = "id may only contain letters, digits, '.', '_' and '-'"
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		errs["title"] = "title is required"
	} else if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		errs["body"] = "body is required and must not be empty"
	} else if len(body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("body must be at most %d characters", maxBodyLength)
	}

	if req.AccessLevel < 0 {
		errs["access_level"] = "access_level must not be negative"
	}

	if req.IdempotencyKey != "" && len(req.IdempotencyKey) > 255 {
		errs["idempotency_key"] = "idempotency key must be at most 255 characters"
	}

	if req.Chunk != nil {
		validateChunkOptions(req.Chunk, errs)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validateChunkOptions(opts *ingestion.ChunkOptions, errs map[string]string) {
	if _, err := chunk.ParseStrategy(opts.Strategy); err != nil {
		errs["chunk.strategy"] = err.Error()
		return
	}
	if opts.Size != 0 && (opts.Size < minChunkSize || opts.Size > maxChunkSize) {
		errs["chunk.size"] = fmt.Sprintf("chunk size must be between %d and %d characters", minChunkSize, maxChunkSize)
		return
	}
	size := opts.Size
	if size == 0 {
		size = chunk.DefaultSize
	}
	if opts.Overlap < 0 {
		errs["chunk.overlap"] = "chunk overlap must not be negative"
	} else if opts.Overlap >= size {
		errs["chunk.overlap"] = "chunk overlap must be smaller than the chunk size"
	}
}

func validID(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
