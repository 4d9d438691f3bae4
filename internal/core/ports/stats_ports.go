package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
)

type StatsRepository interface {
	GetAnswerCounts(ctx context.Context, pollID uuid.UUID) (*domain.AnswerCounts, error)
}

type PeekRepository interface {
	// ClaimPeek records the peek and returns the counts read in the same
	// transaction. It returns domain.ErrAlreadyPeeked on a second claim.
	ClaimPeek(ctx context.Context, pollID, userID uuid.UUID) (*domain.AnswerCounts, error)
	HasPeeked(ctx context.Context, pollID, userID uuid.UUID) (bool, error)
}

// StatsCache stores answer tallies tagged with the poll's response counter at
// read time. Get reports a miss when the stored version differs from the one
// asked for, so a tally written after a newer response was counted is never
// served.
type StatsCache interface {
	Get(ctx context.Context, pollID uuid.UUID, version int) (*domain.AnswerCounts, bool, error)
	Set(ctx context.Context, pollID uuid.UUID, version int, counts *domain.AnswerCounts) error
	Invalidate(ctx context.Context, pollID uuid.UUID) error
}

type StatsService interface {
	GetStats(ctx context.Context, pollID, userID uuid.UUID) (*domain.PollStats, error)
	Peek(ctx context.Context, pollID, userID uuid.UUID) (*domain.PollStats, error)
}
