package ports

import (
	"context"

	"github.com/google/uuid"
)

type UnlockResult struct {
	Unlocked        bool
	ResponseCount   int
	RevealThreshold int
	// Owner is true only for the call whose conditional update changed the row.
	Owner bool
	// PublishFailed is set when the owner could not auto-publish.
	PublishFailed bool
}

type UnlockService interface {
	// RecordResponse increments the counter and attempts the one-time unlock.
	RecordResponse(ctx context.Context, pollID uuid.UUID) (*UnlockResult, error)
	// Reevaluate attempts the unlock without touching the counter.
	Reevaluate(ctx context.Context, pollID uuid.UUID) (*UnlockResult, error)
}
