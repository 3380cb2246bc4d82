package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tinkerloft/quotecraft/internal/client"
	"github.com/tinkerloft/quotecraft/internal/engine"
	"github.com/tinkerloft/quotecraft/internal/llm"
	"github.com/tinkerloft/quotecraft/internal/model"
	"github.com/tinkerloft/quotecraft/internal/quote"
)

// maxAudioBytes bounds voice uploads.
const maxAudioBytes = 25 << 20

// GenerateQuoteRequest is the body of POST /api/v1/quotes.
type GenerateQuoteRequest struct {
	Description string `json:"description"`
}

// RecordEditsRequest is the body of POST /api/v1/quotes/{id}/edits.
type RecordEditsRequest struct {
	LineItems []model.LineItem `json:"line_items"`
	Total     float64          `json:"total"`
}

func (s *Server) handleGenerateQuote(w http.ResponseWriter, r *http.Request, contractorID string) {
	var req GenerateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	q, err := s.engine.GenerateQuote(r.Context(), contractorID, req.Description)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleGenerateQuoteFromAudio(w http.ResponseWriter, r *http.Request, contractorID string) {
	audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio body")
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "audio body is required")
		return
	}

	q, err := s.engine.GenerateQuoteFromAudio(r.Context(), contractorID, audio)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request, contractorID string) {
	quotes, err := s.quotes.List(contractorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if quotes == nil {
		quotes = []*model.Quote{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request, contractorID string) {
	id := chi.URLParam(r, "id")
	q, err := s.quotes.Get(contractorID, id)
	if err != nil {
		if errors.Is(err, quote.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quote not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleRecordEdits(w http.ResponseWriter, r *http.Request, contractorID string) {
	id := chi.URLParam(r, "id")

	var req RecordEditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.LineItems) == 0 {
		writeError(w, http.StatusBadRequest, "line_items is required")
		return
	}

	q, err := s.engine.UpdateQuote(r.Context(), contractorID, id, req.LineItems, req.Total)
	if err != nil {
		switch {
		case errors.Is(err, quote.ErrNotFound):
			writeError(w, http.StatusNotFound, "quote not found")
		case errors.Is(err, model.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleLearnStatus(w http.ResponseWriter, r *http.Request, contractorID string) {
	if s.learn == nil {
		writeError(w, http.StatusNotImplemented, "learn status unavailable")
		return
	}

	id := chi.URLParam(r, "id")
	if r.URL.Query().Get("wait") == "true" {
		// Block until the run finishes. A failed run is still reported
		// through its terminal status below; a missing run falls through
		// to the 404 from the status query.
		_ = s.learn.WaitForLearn(r.Context(), id)
	}

	status, err := s.learn.GetLearnStatus(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "no learn run for quote")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quote_id": id, "status": status})
}

// handleListLearnRuns lists learn workflow runs, optionally filtered by
// execution status and capped by limit.
func (s *Server) handleListLearnRuns(w http.ResponseWriter, r *http.Request) {
	if s.learn == nil {
		writeError(w, http.StatusNotImplemented, "learn runs unavailable")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.learn.ListLearnRuns(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		if errors.Is(err, client.ErrInvalidStatusFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if runs == nil {
		runs = []client.LearnRunInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleDetectCategory(w http.ResponseWriter, r *http.Request, contractorID string) {
	var req GenerateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	key, isNew, err := s.engine.DetectOrCreateCategory(r.Context(), contractorID, req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category_key": key, "is_new": isNew})
}

// writeEngineError maps generation failures onto HTTP statuses. Upstream
// model outages are the gateway's fault from the caller's perspective.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrGeneration), errors.Is(err, llm.ErrServiceUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, llm.ErrTranscription):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
