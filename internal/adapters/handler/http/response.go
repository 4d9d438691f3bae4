package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/unirea/internal/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// writeServiceError maps domain errors to HTTP statuses. Anything unknown is
// logged and reported as a 500 without leaking the cause.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidPollID):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPollNotFound), errors.Is(err, domain.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrAlreadyPeeked),
		errors.Is(err, domain.ErrPollInactive),
		errors.Is(err, domain.ErrAlreadyPublished):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrResultsLocked),
		errors.Is(err, domain.ErrNotAnswered),
		errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, domain.ErrInternal.Error())
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
