package http

import (
	"errors"
	"net/http"
	"time"

	"finances/internal/core"
	"finances/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	kind, err := requiredKind(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := s.svc.ListCategories(r.Context(), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logServed(r, log.OpList, len(cats))
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := core.ParseKind(req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.svc.AddCategory(r.Context(), sanitizeInput(req.Name), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	win, err := optionalWindow(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.ListTransactions(r.Context(), win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logServed(r, log.OpList, len(txs))
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := s.readTransaction(w, r)
	if !ok {
		return
	}
	t, err := s.svc.AddTransaction(r.Context(), p)
	if err != nil {
		writeTransactionError(w, r, err)
		return
	}
	s.logSaved(r, log.OpCreate, t)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logServed(r, log.OpRead, 1)
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTransaction replaces every editable field of a transaction.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, ok := s.readTransaction(w, r)
	if !ok {
		return
	}
	t, err := s.svc.UpdateTransaction(r.Context(), id, p)
	if err != nil {
		writeTransactionError(w, r, err)
		return
	}
	s.logSaved(r, log.OpUpdate, t)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lastUpdatedResponse struct {
	LastUpdated *time.Time `json:"last_updated"`
}

// handleLastUpdated lets clients poll for changes; last_updated is null until
// the first write after startup.
func (s *Server) handleLastUpdated(w http.ResponseWriter, _ *http.Request) {
	var resp lastUpdatedResponse
	if at := s.changes.LastUpdated(); !at.IsZero() {
		at = at.UTC()
		resp.LastUpdated = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) readTransaction(w http.ResponseWriter, r *http.Request) (core.TransactionParams, bool) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return core.TransactionParams{}, false
	}
	p, err := req.params(s.now())
	if err != nil {
		writeError(w, r, err)
		return core.TransactionParams{}, false
	}
	return p, true
}

// writeTransactionError reports a missing referenced category as invalid
// input rather than a missing resource.
func writeTransactionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrCategoryNotFound) {
		logRejected(r, http.StatusUnprocessableEntity, err)
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeError(w, r, err)
}

func (s *Server) logSaved(r *http.Request, op string, t core.Transaction) {
	s.logger.LogTransactionSaved(r.Context(), op, t.ID, t.Type.String(),
		t.Amount.String(), t.Description, t.CategoryID)
}

func logServed(r *http.Request, op string, n int) {
	log.FromContext(r.Context()).DebugContext(r.Context(), "Records served",
		log.FieldOperation, op,
		"count", n)
}
