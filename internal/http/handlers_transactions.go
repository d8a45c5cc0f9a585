package http

import (
	"io"
	"net/http"
	"strings"

	"konto/internal/core"
	"konto/internal/store"
)

const maxImportBytes = 32 << 20

// handleImport accepts a bank export either as a multipart upload under the
// "file" field or as a raw CSV request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	reader, closer, err := importBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	summary, err := s.importer.ImportCSV(r.Context(), reader)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if summary.Added > 0 || summary.RuleCategorized > 0 {
		s.budgetCache.Purge()
	}
	respondJSON(w, http.StatusOK, summary)
}

func importBody(r *http.Request) (io.Reader, io.Closer, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return nil, nil, err
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, nil, err
		}
		return file, file, nil
	}
	return http.MaxBytesReader(nil, r.Body, maxImportBytes), nil, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month := strings.TrimSpace(q.Get("month"))
	categoryID := strings.TrimSpace(q.Get("category"))
	uncategorizedOnly := q.Get("uncategorized") == "true"
	lockedOnly := q.Get("locked") == "true"

	var out []core.Transaction
	for _, tx := range s.store.Transactions() {
		if month != "" && core.MonthKey(tx.Date) != month {
			continue
		}
		if categoryID != "" && tx.EffectiveCategoryID() != categoryID {
			continue
		}
		if uncategorizedOnly && tx.IsCategorized() {
			continue
		}
		if lockedOnly && !tx.Locked {
			continue
		}
		out = append(out, tx)
	}
	if out == nil {
		out = []core.Transaction{}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tx, ok := s.store.Transaction(id)
	if !ok {
		respondDomainError(w, &core.NotFoundError{Kind: "transaction", ID: id})
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTransaction(r.PathValue("id")); err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Stats())
}

type categorizeRequest struct {
	CategoryID string `json:"categoryId"`
	CreateRule bool   `json:"createRule"`
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.store.Categorize(r.PathValue("id"), req.CategoryID, req.CreateRule); err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	tx, _ := s.store.Transaction(r.PathValue("id"))
	respondJSON(w, http.StatusOK, tx)
}

type lockRequest struct {
	CategoryID string `json:"categoryId"`
	Reason     string `json:"reason,omitempty"`
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.store.Lock(r.PathValue("id"), req.CategoryID, req.Reason); err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	tx, _ := s.store.Transaction(r.PathValue("id"))
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Unlock(r.PathValue("id")); err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	tx, _ := s.store.Transaction(r.PathValue("id"))
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleBulkCategorize(w http.ResponseWriter, r *http.Request) {
	var req store.BulkCategorizeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.TransactionIDs) == 0 {
		respondError(w, http.StatusBadRequest, "transactionIds must not be empty")
		return
	}

	report := s.store.BulkCategorize(req)
	if len(report.Applied) > 0 {
		s.invalidateViews()
	}
	respondJSON(w, http.StatusOK, report)
}
