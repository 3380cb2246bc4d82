// Package server provides the HTTP API for quote generation and pricing
// knowledge inspection.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tinkerloft/quotecraft/internal/knowledge"
	"github.com/tinkerloft/quotecraft/internal/quote"
)

// contractorHeader identifies the calling contractor on every API request.
const contractorHeader = "X-Contractor-ID"

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	engine    QuoteEngine
	knowledge *knowledge.Store
	quotes    *quote.Store
	learn     LearnClient // nil disables learn-status and run-listing routes
}

// New creates a new Server. learn may be nil.
func New(engine QuoteEngine, kn *knowledge.Store, quotes *quote.Store, learn LearnClient) *Server {
	s := &Server{engine: engine, knowledge: kn, quotes: quotes, learn: learn}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", contractorHeader},
	}))

	r.Get("/api/v1/health", s.handleHealth)

	// Quote routes
	r.Post("/api/v1/quotes", s.withContractor(s.handleGenerateQuote))
	r.Post("/api/v1/quotes/voice", s.withContractor(s.handleGenerateQuoteFromAudio))
	r.Get("/api/v1/quotes", s.withContractor(s.handleListQuotes))
	r.Route("/api/v1/quotes/{id}", func(r chi.Router) {
		r.Get("/", s.withContractor(s.handleGetQuote))
		r.Post("/edits", s.withContractor(s.handleRecordEdits))
		r.Get("/learn-status", s.withContractor(s.handleLearnStatus))
	})

	// Operational view across contractors; run IDs carry no quote content.
	r.Get("/api/v1/learn-runs", s.handleListLearnRuns)

	// Category and knowledge routes
	r.Post("/api/v1/categories/detect", s.withContractor(s.handleDetectCategory))
	r.Get("/api/v1/knowledge", s.withContractor(s.handleGetKnowledge))
	r.Get("/api/v1/knowledge/categories/{key}", s.withContractor(s.handleGetCategory))
	r.Post("/api/v1/knowledge/rules", s.withContractor(s.handleAddRule))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// contractorHandler is an http.HandlerFunc that also receives the validated
// contractor ID.
type contractorHandler func(w http.ResponseWriter, r *http.Request, contractorID string)

func (s *Server) withContractor(h contractorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contractorID := r.Header.Get(contractorHeader)
		if contractorID == "" {
			writeError(w, http.StatusBadRequest, contractorHeader+" header is required")
			return
		}
		h(w, r, contractorID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
