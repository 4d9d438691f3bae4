package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
}

func NewPollHandler(service ports.PollService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type questionRequest struct {
	Text    string   `json:"text"`
	Label   string   `json:"label"`
	Options []string `json:"options"`
}

type createPollRequest struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Scope           domain.Scope      `json:"scope"`
	TargetSchool    *string           `json:"target_school"`
	TargetYear      *int              `json:"target_year"`
	TargetClass     *string           `json:"target_class"`
	ExpiresAt       *time.Time        `json:"expires_at"`
	RevealThreshold *int              `json:"reveal_threshold"`
	Anonymous       bool              `json:"anonymous"`
	Questions       []questionRequest `json:"questions"`
}

type updatePollRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	ExpiresAt       *time.Time `json:"expires_at"`
	ClearExpiry     bool       `json:"clear_expiry"`
	Active          *bool      `json:"active"`
	RevealThreshold *int       `json:"reveal_threshold"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var req createPollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := ports.CreatePollInput{
		CreatorID:       userID,
		Title:           req.Title,
		Description:     req.Description,
		Scope:           req.Scope,
		TargetSchool:    req.TargetSchool,
		TargetYear:      req.TargetYear,
		TargetClass:     req.TargetClass,
		ExpiresAt:       req.ExpiresAt,
		RevealThreshold: req.RevealThreshold,
		Anonymous:       req.Anonymous,
	}
	for _, q := range req.Questions {
		input.Questions = append(input.Questions, ports.QuestionInput{Text: q.Text, Label: q.Label, Options: q.Options})
	}

	poll, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, poll)
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = p
	}

	polls, err := h.service.ListPolls(r.Context(), ports.ListPollsInput{ViewerID: userID, Page: page})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if polls == nil {
		polls = []*domain.Poll{}
	}

	writeJSON(w, http.StatusOK, polls)
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	poll, err := h.service.GetPoll(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidPollID.Error())
		return
	}

	var req updatePollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	poll, err := h.service.UpdatePoll(r.Context(), ports.UpdatePollInput{
		PollID:   pollID,
		EditorID: userID,
		PollUpdate: ports.PollUpdate{
			Title:           req.Title,
			Description:     req.Description,
			ExpiresAt:       req.ExpiresAt,
			ClearExpiry:     req.ClearExpiry,
			Active:          req.Active,
			RevealThreshold: req.RevealThreshold,
		},
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}
