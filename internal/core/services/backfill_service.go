package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

// backfillService re-runs auto-publish for unlocked polls that ended up
// without a result post because the owner's publish attempt failed.
type backfillService struct {
	pollRepo  ports.PollRepository
	publisher ports.PublishService
}

func NewBackfillService(pollRepo ports.PollRepository, publisher ports.PublishService) ports.BackfillService {
	return &backfillService{
		pollRepo:  pollRepo,
		publisher: publisher,
	}
}

func (s *backfillService) BackfillResultPosts(ctx context.Context) (int, error) {
	polls, err := s.pollRepo.ListUnlockedWithoutPost(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch unpublished polls: %w", err)
	}

	var wg sync.WaitGroup
	var published atomic.Int32
	errChan := make(chan error, len(polls))

	for _, poll := range polls {
		wg.Add(1)
		// The count at unlock time is not stored, so the backfilled post
		// reports the current one.
		go func(pID uuid.UUID, responseCount int) {
			defer wg.Done()
			_, err := s.publisher.PublishResults(ctx, pID, responseCount)
			switch {
			case err == nil:
				published.Add(1)
			case errors.Is(err, domain.ErrAlreadyPublished):
				// published concurrently by a live unlock
				slog.Info("poll results already published", "poll_id", pID)
			default:
				errChan <- fmt.Errorf("failed to publish poll %s: %w", pID, err)
			}
		}(poll.ID, poll.ResponseCount)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	return int(published.Load()), errors.Join(errs...)
}
