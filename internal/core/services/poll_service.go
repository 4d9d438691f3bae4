package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

const (
	minQuestions = 1
	maxQuestions = 10
	minOptions   = 2
	maxOptions   = 6

	pageSize = 10
)

type pollService struct {
	repo         ports.PollRepository
	profileRepo  ports.ProfileRepository
	responseRepo ports.ResponseRepository
	peekRepo     ports.PeekRepository
	unlock       ports.UnlockService
	now          func() time.Time
}

func NewPollService(
	repo ports.PollRepository,
	profileRepo ports.ProfileRepository,
	responseRepo ports.ResponseRepository,
	peekRepo ports.PeekRepository,
	unlock ports.UnlockService,
) ports.PollService {
	return &pollService{
		repo:         repo,
		profileRepo:  profileRepo,
		responseRepo: responseRepo,
		peekRepo:     peekRepo,
		unlock:       unlock,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	creator, err := s.requireAdmin(ctx, input.CreatorID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expiry must be in the future", domain.ErrValidation)
	}

	scope := input.Scope
	if scope == "" {
		scope = domain.ScopeAll
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: unknown audience scope %q", domain.ErrValidation, scope)
	}

	pollID := uuid.New()
	now := s.now()

	poll := &domain.Poll{
		ID:              pollID,
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		Scope:           scope,
		Active:          true,
		ExpiresAt:       input.ExpiresAt,
		CreatedBy:       creator.ID,
		RevealThreshold: domain.ClampThreshold(input.RevealThreshold),
		Anonymous:       input.Anonymous,
		CreatedAt:       now,
	}
	applyTargets(poll, input, creator)
	if err := validateTargets(poll); err != nil {
		return nil, err
	}

	questions, err := buildQuestions(pollID, input.Questions)
	if err != nil {
		return nil, err
	}
	poll.Questions = questions

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	slog.Info("poll created", "poll_id", poll.ID, "scope", poll.Scope, "reveal_threshold", poll.RevealThreshold)
	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string, viewerID uuid.UUID) (*domain.PollView, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	poll, err := visiblePoll(ctx, s.repo, s.profileRepo, pollID, viewerID)
	if err != nil {
		return nil, err
	}

	answered, err := s.responseRepo.HasAnswered(ctx, pollID, viewerID)
	if err != nil {
		return nil, err
	}
	peeked, err := s.peekRepo.HasPeeked(ctx, pollID, viewerID)
	if err != nil {
		return nil, err
	}

	return &domain.PollView{
		Poll:        poll,
		HasAnswered: answered,
		HasPeeked:   peeked,
		Unlocked:    poll.Unlocked(),
	}, nil
}

func (s *pollService) ListPolls(ctx context.Context, input ports.ListPollsInput) ([]*domain.Poll, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}

	viewer, err := s.profileRepo.GetByID(ctx, input.ViewerID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		viewer = &domain.Profile{ID: input.ViewerID}
	}

	return s.repo.ListVisible(ctx, viewer, pageSize, (page-1)*pageSize)
}

// UpdatePoll edits the mutable fields only. Question and option structure
// is fixed once the poll exists.
func (s *pollService) UpdatePoll(ctx context.Context, input ports.UpdatePollInput) (*domain.Poll, error) {
	if _, err := s.requireAdmin(ctx, input.EditorID); err != nil {
		return nil, err
	}

	update := input.PollUpdate
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrValidation)
		}
		update.Title = &title
	}
	if update.RevealThreshold != nil {
		t := domain.ClampThreshold(update.RevealThreshold)
		update.RevealThreshold = &t
	}
	if update.ExpiresAt != nil && update.ClearExpiry {
		return nil, fmt.Errorf("%w: expiry cannot be both set and cleared", domain.ErrValidation)
	}

	if err := s.repo.Update(ctx, input.PollID, update); err != nil {
		return nil, err
	}

	if update.RevealThreshold != nil {
		// A lowered threshold may already be met; the regular conditional
		// unlock decides, without counting a response.
		if _, err := s.unlock.Reevaluate(ctx, input.PollID); err != nil {
			slog.Error("failed to re-evaluate results unlock", "poll_id", input.PollID, "error", err)
		}
	}

	return s.repo.GetByID(ctx, input.PollID)
}

func (s *pollService) requireAdmin(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	if !profile.IsAdmin {
		return nil, domain.ErrForbidden
	}
	return profile, nil
}

// visiblePoll loads a poll for one viewer. Polls outside the viewer's
// audience do not exist for them, whether they read, answer or peek.
func visiblePoll(ctx context.Context, polls ports.PollRepository, profiles ports.ProfileRepository, pollID, viewerID uuid.UUID) (*domain.Poll, error) {
	poll, err := polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	viewer, err := profiles.GetByID(ctx, viewerID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		viewer = nil
	}
	if !visible(viewer, poll) {
		return nil, domain.ErrPollNotFound
	}
	return poll, nil
}

func visible(viewer *domain.Profile, poll *domain.Poll) bool {
	if viewer == nil {
		return poll.Scope == domain.ScopeAll
	}
	return viewer.IsAdmin || viewer.ID == poll.CreatedBy || viewer.CanSee(poll)
}

// applyTargets fills the targets the scope needs from the creator's profile
// when the input leaves them out.
func applyTargets(poll *domain.Poll, input ports.CreatePollInput, creator *domain.Profile) {
	if poll.Scope == domain.ScopeAll {
		return
	}

	poll.TargetSchool = firstString(input.TargetSchool, creator.School)
	if poll.Scope == domain.ScopeSchool {
		return
	}

	poll.TargetYear = input.TargetYear
	if poll.TargetYear == nil {
		poll.TargetYear = creator.GraduationYear
	}
	if poll.Scope == domain.ScopeYear {
		return
	}

	poll.TargetClass = firstString(input.TargetClass, creator.ClassName)
}

func validateTargets(poll *domain.Poll) error {
	needSchool := poll.Scope != domain.ScopeAll
	needYear := poll.Scope == domain.ScopeYear || poll.Scope == domain.ScopeClass
	needClass := poll.Scope == domain.ScopeClass

	if needSchool && poll.TargetSchool == nil {
		return fmt.Errorf("%w: %s polls need a target school", domain.ErrValidation, poll.Scope)
	}
	if needYear && poll.TargetYear == nil {
		return fmt.Errorf("%w: %s polls need a target graduation year", domain.ErrValidation, poll.Scope)
	}
	if needClass && poll.TargetClass == nil {
		return fmt.Errorf("%w: class polls need a target class", domain.ErrValidation)
	}
	return nil
}

func buildQuestions(pollID uuid.UUID, inputs []ports.QuestionInput) ([]domain.Question, error) {
	if len(inputs) < minQuestions || len(inputs) > maxQuestions {
		return nil, fmt.Errorf("%w: a poll needs between %d and %d questions", domain.ErrValidation, minQuestions, maxQuestions)
	}

	questions := make([]domain.Question, 0, len(inputs))
	for i, in := range inputs {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: question %d has no text", domain.ErrValidation, i+1)
		}
		if len(in.Options) < minOptions || len(in.Options) > maxOptions {
			return nil, fmt.Errorf("%w: question %d needs between %d and %d options", domain.ErrValidation, i+1, minOptions, maxOptions)
		}

		q := domain.Question{
			ID:         uuid.New(),
			PollID:     pollID,
			OrderIndex: i,
			Text:       text,
			Label:      strings.TrimSpace(in.Label),
		}
		for j, optText := range in.Options {
			optText = strings.TrimSpace(optText)
			if optText == "" {
				return nil, fmt.Errorf("%w: question %d option %d is empty", domain.ErrValidation, i+1, j+1)
			}
			q.Options = append(q.Options, domain.Option{
				ID:         uuid.New(),
				QuestionID: q.ID,
				OrderIndex: j,
				Text:       optText,
			})
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func firstString(values ...*string) *string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			trimmed := strings.TrimSpace(*v)
			return &trimmed
		}
	}
	return nil
}
