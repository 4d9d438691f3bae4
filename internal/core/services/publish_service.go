package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

type publishService struct {
	pollRepo    ports.PollRepository
	profileRepo ports.ProfileRepository
	postRepo    ports.PostRepository
	now         func() time.Time
}

func NewPublishService(pollRepo ports.PollRepository, profileRepo ports.ProfileRepository, postRepo ports.PostRepository) ports.PublishService {
	return &publishService{
		pollRepo:    pollRepo,
		profileRepo: profileRepo,
		postRepo:    postRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PublishResults posts the results summary of an unlocked poll. Class polls
// go to the creator's post stream, every other scope to the school's
// announcement board.
func (s *publishService) PublishResults(ctx context.Context, pollID uuid.UUID, responseCount int) (*domain.Post, error) {
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.Unlocked() {
		return nil, domain.ErrResultsLocked
	}
	if poll.ResultPostID != nil {
		return nil, domain.ErrAlreadyPublished
	}

	now := s.now()
	post := &domain.Post{
		ID:        uuid.New(),
		AuthorID:  poll.CreatedBy,
		Content:   resultSummary(poll.Title, responseCount),
		CreatedAt: now,
	}

	if poll.Scope == domain.ScopeClass {
		post.Kind = domain.PostKindPost
	} else {
		school, err := s.announcementSchool(ctx, poll)
		if err != nil {
			return nil, err
		}
		expires := now.Add(domain.AnnouncementLifetime)
		post.Kind = domain.PostKindAnnouncement
		post.School = school
		post.Title = fmt.Sprintf("Rezultate sondaj: %s", poll.Title)
		post.ExpiresAt = &expires
	}

	if err := s.postRepo.PublishResult(ctx, poll.ID, post); err != nil {
		return nil, err
	}

	slog.Info("poll results published", "poll_id", poll.ID, "post_id", post.ID, "kind", post.Kind)
	return post, nil
}

func (s *publishService) announcementSchool(ctx context.Context, poll *domain.Poll) (*string, error) {
	if poll.TargetSchool != nil {
		return poll.TargetSchool, nil
	}
	creator, err := s.profileRepo.GetByID(ctx, poll.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to load poll creator: %w", err)
	}
	if creator.School == nil {
		return nil, errors.New("poll creator has no school to announce to")
	}
	return creator.School, nil
}

func resultSummary(title string, responseCount int) string {
	return fmt.Sprintf("Sondajul \"%s\" a strâns %d răspunsuri. Rezultatele sunt acum disponibile!", title, responseCount)
}
