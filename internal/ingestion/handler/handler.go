// Package handler exposes the ingestion service's HTTP surface.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/joshianirudh/context-engine/internal/analytics"
	"github.com/joshianirudh/context-engine/internal/ingestion"
	"github.com/joshianirudh/context-engine/internal/ingestion/publisher"
	"github.com/joshianirudh/context-engine/internal/ingestion/validator"
	apperrors "github.com/joshianirudh/context-engine/pkg/errors"
	"github.com/joshianirudh/context-engine/pkg/logger"
	"github.com/joshianirudh/context-engine/pkg/middleware"
)

type Handler struct {
	publisher *publisher.Publisher
	collector *analytics.Collector
	logger    *slog.Logger
}

// New creates a Handler. collector may be nil.
func New(pub *publisher.Publisher, collector *analytics.Collector) *Handler {
	return &Handler{
		publisher: pub,
		collector: collector,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ingestion.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.publisher.Ingest(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}

	log.Info("document ingested",
		"doc_id", resp.DocumentID,
		"status", resp.Status,
		"chunks", resp.Chunks,
	)
	if h.collector != nil && resp.Status == "stored" {
		h.collector.TrackIngest(analytics.IngestEvent{
			Type:        analytics.EventDocumentIngested,
			DocumentID:  resp.DocumentID,
			AccessLevel: req.AccessLevel,
			Chunks:      resp.Chunks,
			SizeBytes:   len(req.Body),
			LatencyMs:   time.Since(start).Milliseconds(),
			Timestamp:   time.Now().UTC(),
			RequestID:   middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
