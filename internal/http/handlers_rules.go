package http

import (
	"net/http"
)

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Rules())
}

type upsertRuleRequest struct {
	Text       string `json:"text"`
	CategoryID string `json:"categoryId"`
}

func (s *Server) handleUpsertRule(w http.ResponseWriter, r *http.Request) {
	var req upsertRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.store.UpsertRule(req.Text, req.CategoryID); err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, s.store.Rules())
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteRule(r.PathValue("text"))
	s.invalidateViews()
	respondJSON(w, http.StatusNoContent, nil)
}

type applyRulesResponse struct {
	Categorized int `json:"categorized"`
}

func (s *Server) handleApplyRules(w http.ResponseWriter, _ *http.Request) {
	n := s.store.ApplyRulesToAll()
	if n > 0 {
		s.invalidateViews()
	}
	respondJSON(w, http.StatusOK, applyRulesResponse{Categorized: n})
}
