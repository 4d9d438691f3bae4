package domain

import "errors"

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrInvalidPollID    = errors.New("invalid poll id")
	ErrValidation       = errors.New("validation failed")
	ErrPollInactive     = errors.New("poll is not accepting responses")
	ErrAlreadyAnswered  = errors.New("user has already answered this poll")
	ErrAlreadyPeeked    = errors.New("user has already used the quick look on this poll")
	ErrNotAnswered      = errors.New("user has not answered this poll")
	ErrResultsLocked    = errors.New("results are locked until the reveal threshold is reached")
	ErrForbidden        = errors.New("forbidden")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrAlreadyPublished = errors.New("poll results already published")
	ErrInternal         = errors.New("internal server error")
)
