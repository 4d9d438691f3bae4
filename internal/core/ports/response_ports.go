package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
)

type ResponseRepository interface {
	// Save returns domain.ErrAlreadyAnswered when (poll, user) already has a row.
	Save(ctx context.Context, response *domain.Response) error
	HasAnswered(ctx context.Context, pollID, userID uuid.UUID) (bool, error)
	// GetByUser returns nil without error when the user has not answered.
	GetByUser(ctx context.Context, pollID, userID uuid.UUID) (*domain.Response, error)
}

type SubmitInput struct {
	PollID  uuid.UUID
	UserID  uuid.UUID
	Answers domain.Answers
}

type SubmitResult struct {
	OK              bool   `json:"ok"`
	Unlocked        bool   `json:"unlocked"`
	ResponseCount   int    `json:"response_count"`
	RevealThreshold int    `json:"reveal_threshold"`
	Warning         string `json:"warning,omitempty"`
}

type ResponseService interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error)
}
