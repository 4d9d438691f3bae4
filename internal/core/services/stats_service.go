package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
	"github.com/vncsmyrnk/unirea/internal/metrics"
)

type statsService struct {
	pollRepo     ports.PollRepository
	responseRepo ports.ResponseRepository
	profileRepo  ports.ProfileRepository
	statsRepo    ports.StatsRepository
	peekRepo     ports.PeekRepository
	cache        ports.StatsCache
	metrics      *metrics.PollMetrics
}

func NewStatsService(
	pollRepo ports.PollRepository,
	responseRepo ports.ResponseRepository,
	profileRepo ports.ProfileRepository,
	statsRepo ports.StatsRepository,
	peekRepo ports.PeekRepository,
	cache ports.StatsCache,
	m *metrics.PollMetrics,
) ports.StatsService {
	return &statsService{
		pollRepo:     pollRepo,
		responseRepo: responseRepo,
		profileRepo:  profileRepo,
		statsRepo:    statsRepo,
		peekRepo:     peekRepo,
		cache:        cache,
		metrics:      m,
	}
}

func (s *statsService) GetStats(ctx context.Context, pollID, userID uuid.UUID) (*domain.PollStats, error) {
	poll, err := visiblePoll(ctx, s.pollRepo, s.profileRepo, pollID, userID)
	if err != nil {
		return nil, err
	}
	if !poll.Unlocked() {
		return nil, domain.ErrResultsLocked
	}
	return s.unlockedStats(ctx, poll, userID)
}

// Peek grants one early look at partial results to a user who has answered.
// Once the poll is unlocked, users who never peeked get the regular
// statistics without spending the privilege.
func (s *statsService) Peek(ctx context.Context, pollID, userID uuid.UUID) (*domain.PollStats, error) {
	poll, err := visiblePoll(ctx, s.pollRepo, s.profileRepo, pollID, userID)
	if err != nil {
		return nil, err
	}

	if poll.Unlocked() {
		peeked, err := s.peekRepo.HasPeeked(ctx, pollID, userID)
		if err != nil {
			return nil, err
		}
		if peeked {
			return nil, domain.ErrAlreadyPeeked
		}
		return s.unlockedStats(ctx, poll, userID)
	}

	response, err := s.responseRepo.GetByUser(ctx, pollID, userID)
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, domain.ErrNotAnswered
	}

	counts, err := s.peekRepo.ClaimPeek(ctx, pollID, userID)
	if err != nil {
		return nil, err
	}
	s.metrics.Peeks.Inc()
	slog.Info("poll peek granted", "poll_id", pollID, "user_id", userID, "response_count", counts.Total)

	return domain.BuildStats(poll, counts, response.Answers), nil
}

func (s *statsService) unlockedStats(ctx context.Context, poll *domain.Poll, userID uuid.UUID) (*domain.PollStats, error) {
	counts, err := s.answerCounts(ctx, poll)
	if err != nil {
		return nil, err
	}

	response, err := s.responseRepo.GetByUser(ctx, poll.ID, userID)
	if err != nil {
		return nil, err
	}
	var userAnswers domain.Answers
	if response != nil {
		userAnswers = response.Answers
	}

	return domain.BuildStats(poll, counts, userAnswers), nil
}

// answerCounts reads through the cache, versioned by the response counter
// loaded with the poll. Cache failures fall back to the database.
func (s *statsService) answerCounts(ctx context.Context, poll *domain.Poll) (*domain.AnswerCounts, error) {
	version := poll.ResponseCount
	if s.cache != nil {
		counts, ok, err := s.cache.Get(ctx, poll.ID, version)
		switch {
		case err != nil:
			s.metrics.CacheLookups.WithLabelValues("error").Inc()
			slog.Warn("failed to read stats cache", "poll_id", poll.ID, "error", err)
		case ok:
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return counts, nil
		default:
			s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	counts, err := s.statsRepo.GetAnswerCounts(ctx, poll.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count answers: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, poll.ID, version, counts); err != nil {
			slog.Warn("failed to write stats cache", "poll_id", poll.ID, "error", err)
		}
	}
	return counts, nil
}
