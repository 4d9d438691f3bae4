package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

type ResponseHandler struct {
	service ports.ResponseService
}

func NewResponseHandler(service ports.ResponseService) *ResponseHandler {
	return &ResponseHandler{
		service: service,
	}
}

type submitRequest struct {
	Answers domain.Answers `json:"answers"`
}

func (h *ResponseHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidPollID.Error())
		return
	}

	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	result, err := h.service.Submit(r.Context(), ports.SubmitInput{
		PollID:  pollID,
		UserID:  userID,
		Answers: req.Answers,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
