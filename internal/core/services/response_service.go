package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
	"github.com/vncsmyrnk/unirea/internal/metrics"
)

const (
	warnUnlockFailed  = "your answer was recorded, but the results status could not be updated"
	warnPublishFailed = "your answer was recorded, but the results announcement could not be published"
)

type responseService struct {
	pollRepo     ports.PollRepository
	responseRepo ports.ResponseRepository
	profileRepo  ports.ProfileRepository
	unlock       ports.UnlockService
	cache        ports.StatsCache
	events       ports.EventPublisher
	metrics      *metrics.PollMetrics
	now          func() time.Time
}

func NewResponseService(
	pollRepo ports.PollRepository,
	responseRepo ports.ResponseRepository,
	profileRepo ports.ProfileRepository,
	unlock ports.UnlockService,
	cache ports.StatsCache,
	events ports.EventPublisher,
	m *metrics.PollMetrics,
) ports.ResponseService {
	return &responseService{
		pollRepo:     pollRepo,
		responseRepo: responseRepo,
		profileRepo:  profileRepo,
		unlock:       unlock,
		cache:        cache,
		events:       events,
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *responseService) Submit(ctx context.Context, input ports.SubmitInput) (*ports.SubmitResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.SubmitDuration.Observe(time.Since(start).Seconds())
	}()

	poll, err := visiblePoll(ctx, s.pollRepo, s.profileRepo, input.PollID, input.UserID)
	if err != nil {
		return nil, err
	}

	if !poll.Open(s.now()) {
		s.metrics.ResponsesRejected.WithLabelValues("inactive").Inc()
		return nil, domain.ErrPollInactive
	}

	if err := input.Answers.Validate(poll); err != nil {
		s.metrics.ResponsesRejected.WithLabelValues("invalid").Inc()
		return nil, err
	}

	hasAnswered, err := s.responseRepo.HasAnswered(ctx, input.PollID, input.UserID)
	if err != nil {
		return nil, err
	}
	if hasAnswered {
		s.metrics.ResponsesRejected.WithLabelValues("duplicate").Inc()
		return nil, domain.ErrAlreadyAnswered
	}

	response := &domain.Response{
		ID:        uuid.New(),
		PollID:    input.PollID,
		UserID:    input.UserID,
		Answers:   input.Answers,
		CreatedAt: s.now(),
	}

	// The unique (poll_id, user_id) constraint is the real guard; the check
	// above only spares the common case a failed insert.
	if err := s.responseRepo.Save(ctx, response); err != nil {
		if errors.Is(err, domain.ErrAlreadyAnswered) {
			s.metrics.ResponsesRejected.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}
	s.metrics.ResponsesRecorded.Inc()
	slog.Info("poll response recorded", "poll_id", poll.ID, "user_id", input.UserID)

	// The answer is stored. Nothing below may fail the submission, and a
	// client hanging up must not skip the counter increment.
	sideCtx := context.WithoutCancel(ctx)

	result := &ports.SubmitResult{
		OK:              true,
		Unlocked:        poll.Unlocked(),
		ResponseCount:   poll.ResponseCount + 1,
		RevealThreshold: poll.RevealThreshold,
	}

	unlock, err := s.unlock.RecordResponse(sideCtx, poll.ID)
	if unlock != nil {
		result.Unlocked = unlock.Unlocked
		result.ResponseCount = unlock.ResponseCount
		result.RevealThreshold = unlock.RevealThreshold
		if unlock.PublishFailed {
			result.Warning = warnPublishFailed
		}
	}
	if err != nil {
		slog.Error("failed to evaluate results unlock", "poll_id", poll.ID, "error", err)
		result.Warning = warnUnlockFailed
	}

	// Dropped after the counter moved so no reader can re-cache a tally
	// under the new version before this response is counted.
	if s.cache != nil {
		if err := s.cache.Invalidate(sideCtx, poll.ID); err != nil {
			slog.Warn("failed to invalidate stats cache", "poll_id", poll.ID, "error", err)
		}
	}

	emit(sideCtx, s.events, domain.PollEvent{
		Type:            domain.EventResponseRecorded,
		PollID:          poll.ID,
		ResponseCount:   result.ResponseCount,
		RevealThreshold: result.RevealThreshold,
		OccurredAt:      s.now(),
	})

	return result, nil
}
