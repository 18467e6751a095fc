package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"finances/internal/core"
	"finances/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps err onto a status code. Rejected requests are logged at
// warn level; unexpected errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// middleware.Timeout answers 504 once the handler returns.
			fields := log.NewFields().WithError(err).WithErrorType(log.ErrorTypeTimeout)
			log.FromContext(r.Context()).WarnContext(r.Context(), "Request abandoned", fields.ToSlice()...)
			return
		}
		fields := log.NewFields().WithError(err).WithErrorType(log.ErrorTypeInternal).WithComponent(log.ComponentHTTP)
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
		writeErrorMessage(w, status, "internal error")
		return
	}
	logRejected(r, status, err)
	writeErrorMessage(w, status, err.Error())
}

func logRejected(r *http.Request, status int, err error) {
	fields := log.NewFields().WithError(err).WithErrorType(errorTypeFor(status))
	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		fields = fields.WithOperation(log.OpValidate)
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Request rejected",
		append(fields.ToSlice(), log.FieldStatusCode, status)...)
}

func errorTypeFor(status int) string {
	switch status {
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusConflict:
		return log.ErrorTypeConflict
	default:
		return log.ErrorTypeValidation
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTransactionNotFound), errors.Is(err, core.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCategoryInUse):
		return http.StatusConflict
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
