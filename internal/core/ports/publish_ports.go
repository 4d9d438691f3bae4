package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
)

type PostRepository interface {
	// PublishResult stores the post and links it to the poll in one
	// transaction. It returns domain.ErrAlreadyPublished if the poll already
	// has a result post.
	PublishResult(ctx context.Context, pollID uuid.UUID, post *domain.Post) error
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.PollEvent) error
	Close() error
}

type PublishService interface {
	// PublishResults announces the results with responseCount as the final
	// tally, which is the count that crossed the threshold when called by
	// the unlock owner.
	PublishResults(ctx context.Context, pollID uuid.UUID, responseCount int) (*domain.Post, error)
}

type BackfillService interface {
	BackfillResultPosts(ctx context.Context) (int, error)
}
