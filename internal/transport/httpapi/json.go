package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// maxBodyBytes caps request bodies. Score payloads are the largest and stay
// well below it.
const maxBodyBytes = 1 << 20

// Error codes written in the "code" field of error responses.
const (
	CodeBadJSON            = "BAD_JSON"
	CodeValidation         = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeSessionCompleted   = "SESSION_COMPLETED"
	CodeDiscussionDisabled = "DISCUSSION_DISABLED"
	CodeConflict           = "CONFLICT"
	CodeNoEligibleEntries  = "NO_ELIGIBLE_ENTRIES"
	CodeInternal           = "INTERNAL"
)

type errorBody struct {
	RequestID string    `json:"request_id,omitempty"`
	Error     errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, status, errorBody{
		RequestID: middleware.GetReqID(r.Context()),
		Error:     errorInfo{Code: code, Message: message, Details: details},
	})
}

// writeError maps an engine error onto a status code and error body.
// Unclassified errors are logged and reported without their message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrorCode(w, r, http.StatusBadRequest, CodeValidation, verr.Error(), verr.Errors)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorCode(w, r, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrSessionCompleted):
		writeErrorCode(w, r, http.StatusConflict, CodeSessionCompleted, err.Error(), nil)
	case errors.Is(err, domain.ErrDiscussionDisabled):
		writeErrorCode(w, r, http.StatusConflict, CodeDiscussionDisabled, err.Error(), nil)
	case errors.Is(err, domain.ErrConcurrency):
		// The engine already retried once; the client may try again.
		w.Header().Set("Retry-After", "1")
		writeErrorCode(w, r, http.StatusServiceUnavailable, CodeConflict, err.Error(), nil)
	case errors.Is(err, domain.ErrNoEligibleEntries):
		writeErrorCode(w, r, http.StatusUnprocessableEntity, CodeNoEligibleEntries, err.Error(), nil)
	default:
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeErrorCode(w, r, http.StatusInternalServerError, CodeInternal, "internal error", nil)
	}
}
