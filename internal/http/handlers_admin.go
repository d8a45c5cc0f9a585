package http

import (
	"net/http"

	"konto/internal/log"
)

func (s *Server) handleForceSave(w http.ResponseWriter, r *http.Request) {
	if s.saver == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}
	if err := s.saver.Force(r.Context()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "forced save failed", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	path, err := s.gateway.Backup(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "backup failed", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "backed up", "path": path})
}
