package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/joshianirudh/context-engine/internal/ingestion"
)

func validRequest() *ingestion.IngestRequest {
	return &ingestion.IngestRequest{
		Title:       "Runbook",
		Body:        "Step one: stay calm.",
		AccessLevel: 1,
	}
}

func fieldError(t *testing.T, err error, field string) string {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	msg, ok := vErr.Fields[field]
	if !ok {
		t.Fatalf("no error recorded for field %q (got %v)", field, vErr.Fields)
	}
	return msg
}

func TestValidRequest(t *testing.T) {
	if err := ValidateIngestRequest(validRequest()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

func TestValidRequestWithAllFields(t *testing.T) {
	req := validRequest()
	req.ID = "doc-42.v2_final"
	req.Tags = []string{"ops", "internal"}
	req.IdempotencyKey = "key-123"
	req.Chunk = &ingestion.ChunkOptions{Strategy: "fixed", Size: 200, Overlap: 20}
	if err := ValidateIngestRequest(req); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

func TestTitleValidation(t *testing.T) {
	req := validRequest()
	req.Title = ""
	fieldError(t, ValidateIngestRequest(req), "title")

	req.Title = "   "
	fieldError(t, ValidateIngestRequest(req), "title")

	req.Title = strings.Repeat("x", maxTitleLength+1)
	fieldError(t, ValidateIngestRequest(req), "title")
}

func TestBodyValidation(t *testing.T) {
	req := validRequest()
	req.Body = ""
	fieldError(t, ValidateIngestRequest(req), "body")

	req.Body = " \n\t "
	fieldError(t, ValidateIngestRequest(req), "body")

	req.Body = strings.Repeat("x", maxBodyLength+1)
	fieldError(t, ValidateIngestRequest(req), "body")
}

func TestIDValidation(t *testing.T) {
	req := validRequest()
	req.ID = strings.Repeat("a", maxIDLength+1)
	fieldError(t, ValidateIngestRequest(req), "id")

	req.ID = "has space"
	fieldError(t, ValidateIngestRequest(req), "id")

	req.ID = "weird/slash"
	fieldError(t, ValidateIngestRequest(req), "id")
}

func TestAccessLevelValidation(t *testing.T) {
	req := validRequest()
	req.AccessLevel = -1
	fieldError(t, ValidateIngestRequest(req), "access_level")

	req.AccessLevel = 0
	if err := ValidateIngestRequest(req); err != nil {
		t.Errorf("access level 0 rejected: %v", err)
	}
}

func TestIdempotencyKeyValidation(t *testing.T) {
	req := validRequest()
	req.IdempotencyKey = strings.Repeat("k", 256)
	fieldError(t, ValidateIngestRequest(req), "idempotency_key")
}

func TestChunkOptionsValidation(t *testing.T) {
	tests := []struct {
		name  string
		opts  ingestion.ChunkOptions
		field string
	}{
		{"unknown strategy", ingestion.ChunkOptions{Strategy: "semantic"}, "chunk.strategy"},
		{"size too small", ingestion.ChunkOptions{Strategy: "fixed", Size: 5}, "chunk.size"},
		{"size too large", ingestion.ChunkOptions{Strategy: "fixed", Size: maxChunkSize + 1}, "chunk.size"},
		{"negative overlap", ingestion.ChunkOptions{Strategy: "fixed", Size: 200, Overlap: -1}, "chunk.overlap"},
		{"overlap >= size", ingestion.ChunkOptions{Strategy: "fixed", Size: 100, Overlap: 100}, "chunk.overlap"},
		{"overlap >= default size", ingestion.ChunkOptions{Strategy: "fixed", Overlap: 500}, "chunk.overlap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.Chunk = &tt.opts
			fieldError(t, ValidateIngestRequest(req), tt.field)
		})
	}
}

func TestMultipleViolationsReported(t *testing.T) {
	req := &ingestion.IngestRequest{Title: "", Body: "", AccessLevel: -2}
	err := ValidateIngestRequest(req)

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if len(vErr.Fields) != 3 {
		t.Errorf("recorded %d field errors, want 3: %v", len(vErr.Fields), vErr.Fields)
	}
	if !strings.Contains(vErr.Error(), "title") {
		t.Errorf("Error() = %q, want mention of title", vErr.Error())
	}
}
