package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AddRuleRequest is the body of POST /api/v1/knowledge/rules.
type AddRuleRequest struct {
	Rule string `json:"rule"`
}

func (s *Server) handleGetKnowledge(w http.ResponseWriter, r *http.Request, contractorID string) {
	kn, err := s.knowledge.Get(contractorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, kn)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request, contractorID string) {
	key := chi.URLParam(r, "key")
	cat, ok, err := s.knowledge.GetCategory(contractorID, key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request, contractorID string) {
	var req AddRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Rule == "" {
		writeError(w, http.StatusBadRequest, "rule is required")
		return
	}

	if err := s.knowledge.AddGlobalRule(contractorID, req.Rule); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"rule": req.Rule})
}
