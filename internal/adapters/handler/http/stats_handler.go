package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

type StatsHandler struct {
	service ports.StatsService
}

func NewStatsHandler(service ports.StatsService) *StatsHandler {
	return &StatsHandler{
		service: service,
	}
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.GetStats)
}

func (h *StatsHandler) Peek(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.Peek)
}

type statsFunc func(ctx context.Context, pollID, userID uuid.UUID) (*domain.PollStats, error)

func (h *StatsHandler) serve(w http.ResponseWriter, r *http.Request, fn statsFunc) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidPollID.Error())
		return
	}

	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	stats, err := fn(r.Context(), pollID, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
