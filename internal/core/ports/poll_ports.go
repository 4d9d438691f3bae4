package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	ListVisible(ctx context.Context, viewer *domain.Profile, limit, offset int) ([]*domain.Poll, error)
	Update(ctx context.Context, id uuid.UUID, update PollUpdate) error
	// IncrementResponseCount adds one to the response counter and returns the
	// counter as it stands after the increment.
	IncrementResponseCount(ctx context.Context, id uuid.UUID) (*domain.Counter, error)
	// GetCounter reads the counter without modifying it.
	GetCounter(ctx context.Context, id uuid.UUID) (*domain.Counter, error)
	// MarkResultsUnlocked sets results_unlocked_at only if it is still null and
	// reports whether this call changed the row.
	MarkResultsUnlocked(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListUnlockedWithoutPost(ctx context.Context) ([]*domain.Poll, error)
}

type PollUpdate struct {
	Title           *string
	Description     *string
	ExpiresAt       *time.Time
	ClearExpiry     bool
	Active          *bool
	RevealThreshold *int
}

type QuestionInput struct {
	Text    string
	Label   string
	Options []string
}

type CreatePollInput struct {
	CreatorID       uuid.UUID
	Title           string
	Description     string
	Scope           domain.Scope
	TargetSchool    *string
	TargetYear      *int
	TargetClass     *string
	ExpiresAt       *time.Time
	RevealThreshold *int
	Anonymous       bool
	Questions       []QuestionInput
}

type UpdatePollInput struct {
	PollID   uuid.UUID
	EditorID uuid.UUID
	PollUpdate
}

type ListPollsInput struct {
	ViewerID uuid.UUID
	Page     int
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string, viewerID uuid.UUID) (*domain.PollView, error)
	ListPolls(ctx context.Context, input ListPollsInput) ([]*domain.Poll, error)
	UpdatePoll(ctx context.Context, input UpdatePollInput) (*domain.Poll, error)
}
