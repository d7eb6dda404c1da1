package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/guidechat-ai/guidechat/internal/history"
	"github.com/guidechat-ai/guidechat/internal/logging"
	"github.com/guidechat-ai/guidechat/internal/rag"
)

// defaultHistoryLimit bounds GET /api/chat/history when no limit is given.
const defaultHistoryLimit = 20

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseQueryRequest decodes and validates the shared request body for the
// query endpoints. On failure it writes the 400 response itself and returns
// ok=false.
func (s *Server) parseQueryRequest(w http.ResponseWriter, r *http.Request) (queryRequest, rag.Category, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return req, "", false
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Question is required"})
		return req, "", false
	}

	categories := s.store.Categories()
	if len(categories) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no document categories configured"})
		return req, "", false
	}
	if req.DocumentType == "" {
		req.DocumentType = string(categories[0])
	}
	cat := rag.Category(req.DocumentType)
	if !slices.Contains(categories, cat) {
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = fmt.Sprintf("%q", c)
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "documentType must be one of " + strings.Join(names, ", "),
		})
		return req, "", false
	}
	return req, cat, true
}

// handleQuery handles POST /api/chat/query: retrieve, generate, and return
// the complete answer as one JSON document.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, cat, ok := s.parseQueryRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	answer, err := s.assistant.Query(r.Context(), req.Question, cat)
	if err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues(outcomeError).Inc()
		s.writeQueryError(w, r, err)
		return
	}
	s.metrics.queryRequestsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcomeOK).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, queryResponse{
		Question:     req.Question,
		Answer:       answer,
		DocumentType: string(cat),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

// writeQueryError maps domain errors to HTTP statuses for the
// non-streaming endpoint. Unknown categories surface as 400, untrained
// ones as 409; everything else is a 500.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())
	switch {
	case errors.Is(err, rag.ErrUnknownCategory):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown document category"})
	case errors.Is(err, rag.ErrNotTrained):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:   "category not trained",
			Details: "no documents have been indexed for this category yet",
		})
	default:
		log.Error("query failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to process query",
			Details: err.Error(),
		})
	}
}

// handleQueryStream handles POST /api/chat/query-stream. The answer is
// streamed over Server-Sent Events as JSON frames:
//
//	data: {"type":"start","question":...,"documentType":...}
//	data: {"type":"chunk","content":...}   (repeated)
//	data: {"type":"done"}
//
// Failures after the stream has opened are delivered in-band as a
// {"type":"error"} frame; the HTTP status is already committed by then.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	req, cat, ok := s.parseQueryRequest(w, r)
	if !ok {
		return
	}

	flusher, okF := w.(http.Flusher)
	if !okF {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sw := &sseWriter{w: w, flusher: flusher}
	sw.sendEvent(map[string]any{"type": "start", "question": req.Question, "documentType": string(cat)})

	s.metrics.activeStreams.Inc()
	defer s.metrics.activeStreams.Dec()

	start := time.Now()
	if _, err := s.assistant.QueryStream(r.Context(), req.Question, cat, sw); err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues(outcomeError).Inc()
		logging.FromContext(r.Context()).Error("streaming query failed", slog.Any("error", err))
		sw.sendEvent(map[string]any{"type": "error", "error": err.Error()})
		return
	}
	s.metrics.queryRequestsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcomeOK).Observe(time.Since(start).Seconds())

	sw.sendEvent(map[string]any{"type": "done"})
}

// handleDocuments handles GET /api/chat/documents: report which guide
// categories exist and which of them have trained collections.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	available := []string{}
	for _, cat := range s.store.Available() {
		available = append(available, string(cat))
	}
	// One boolean key per configured category, alongside the available list.
	resp := map[string]any{"available": available}
	for _, cat := range s.store.Categories() {
		resp[string(cat)] = s.store.IsTrained(cat)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHistory handles GET /api/chat/history. Optional query parameters:
// category filters to one guide, limit bounds the result count.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	if s.history == nil {
		writeJSON(w, http.StatusOK, historyResponse{Exchanges: []history.Exchange{}})
		return
	}

	exchanges, err := s.history.Recent(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("history lookup failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load history"})
		return
	}
	if exchanges == nil {
		exchanges = []history.Exchange{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Exchanges: exchanges})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "GuideChat API is running",
	})
}

// sseWriter wraps an http.ResponseWriter to emit Server-Sent Event frames.
// Raw writes become {"type":"chunk"} frames so answer segments arrive as
// well-formed JSON regardless of their content.
type sseWriter struct {
	// w is the underlying response writer.
	w http.ResponseWriter
	// flusher flushes buffered data to the client after each frame.
	flusher http.Flusher
}

// Write wraps p in a chunk frame and flushes it to the client.
func (s *sseWriter) Write(p []byte) (int, error) {
	if err := s.sendEvent(map[string]any{"type": "chunk", "content": string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// sendEvent marshals payload as one SSE data frame and flushes it.
func (s *sseWriter) sendEvent(payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("server: marshal sse frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("server: write sse frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}
