package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"konto/internal/core"
	"konto/internal/persist"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}

// respondDomainError maps domain errors onto HTTP status codes.
func respondDomainError(w http.ResponseWriter, err error) {
	var notFound *core.NotFoundError
	var validation *core.ValidationError
	var locked *core.LockedError
	var persistence *core.PersistenceError

	switch {
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &locked):
		respondError(w, http.StatusConflict, locked.Error())
	case errors.Is(err, persist.ErrNoSnapshot):
		respondError(w, http.StatusNotFound, "no snapshot saved")
	case errors.As(err, &persistence):
		respondError(w, http.StatusInternalServerError, persistence.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
