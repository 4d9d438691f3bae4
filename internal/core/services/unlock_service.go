package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
	"github.com/vncsmyrnk/unirea/internal/metrics"
)

// unlockService owns the Locked -> Unlocked transition. It keeps no state of
// its own: the counter increment and the guarded timestamp update are both
// atomic in the repository, so any number of server instances may run it.
type unlockService struct {
	pollRepo  ports.PollRepository
	publisher ports.PublishService
	events    ports.EventPublisher
	metrics   *metrics.PollMetrics
	now       func() time.Time
}

func NewUnlockService(pollRepo ports.PollRepository, publisher ports.PublishService, events ports.EventPublisher, m *metrics.PollMetrics) ports.UnlockService {
	return &unlockService{
		pollRepo:  pollRepo,
		publisher: publisher,
		events:    events,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *unlockService) RecordResponse(ctx context.Context, pollID uuid.UUID) (*ports.UnlockResult, error) {
	counter, err := s.pollRepo.IncrementResponseCount(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment response count: %w", err)
	}
	return s.tryUnlock(ctx, pollID, counter)
}

func (s *unlockService) Reevaluate(ctx context.Context, pollID uuid.UUID) (*ports.UnlockResult, error) {
	counter, err := s.pollRepo.GetCounter(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to read response count: %w", err)
	}
	return s.tryUnlock(ctx, pollID, counter)
}

func (s *unlockService) tryUnlock(ctx context.Context, pollID uuid.UUID, counter *domain.Counter) (*ports.UnlockResult, error) {
	result := &ports.UnlockResult{
		ResponseCount:   counter.ResponseCount,
		RevealThreshold: counter.RevealThreshold,
	}

	if counter.ResultsUnlockedAt != nil {
		result.Unlocked = true
		return result, nil
	}
	if counter.ResponseCount < counter.RevealThreshold {
		return result, nil
	}

	won, err := s.pollRepo.MarkResultsUnlocked(ctx, pollID, s.now())
	if err != nil {
		return result, fmt.Errorf("failed to unlock results: %w", err)
	}
	// Whoever changed the row, the poll is unlocked now.
	result.Unlocked = true
	if !won {
		s.metrics.Unlocks.WithLabelValues("lost").Inc()
		return result, nil
	}

	s.metrics.Unlocks.WithLabelValues("won").Inc()
	result.Owner = true
	slog.Info("poll results unlocked", "poll_id", pollID, "response_count", counter.ResponseCount, "reveal_threshold", counter.RevealThreshold)

	event := domain.PollEvent{
		Type:            domain.EventPollUnlocked,
		PollID:          pollID,
		ResponseCount:   counter.ResponseCount,
		RevealThreshold: counter.RevealThreshold,
		OccurredAt:      s.now(),
	}

	post, err := s.publisher.PublishResults(ctx, pollID, counter.ResponseCount)
	if err != nil {
		slog.Error("failed to auto-publish poll results", "poll_id", pollID, "error", err)
		s.metrics.PublishFailures.Inc()
		result.PublishFailed = true
	} else {
		event.ResultPostID = &post.ID
	}

	emit(ctx, s.events, event)
	return result, nil
}

// emit sends an event to the change feed. Failures are logged only.
func emit(ctx context.Context, events ports.EventPublisher, event domain.PollEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish poll event", "type", event.Type, "poll_id", event.PollID, "error", err)
	}
}
