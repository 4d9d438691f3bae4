package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Answers maps a question id to the chosen option id.
type Answers map[uuid.UUID]uuid.UUID

// Validate checks that the key set equals the poll's question set and every
// value is an option of its question.
func (a Answers) Validate(poll *Poll) error {
	if len(a) != len(poll.Questions) {
		return fmt.Errorf("%w: expected %d answers, got %d", ErrValidation, len(poll.Questions), len(a))
	}
	for questionID, optionID := range a {
		q, ok := poll.Question(questionID)
		if !ok {
			return fmt.Errorf("%w: question %s does not belong to this poll", ErrValidation, questionID)
		}
		if !q.HasOption(optionID) {
			return fmt.Errorf("%w: option %s is not valid for question %s", ErrValidation, optionID, questionID)
		}
	}
	return nil
}

type Response struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	UserID    uuid.UUID `json:"user_id"`
	Answers   Answers   `json:"answers"`
	CreatedAt time.Time `json:"created_at"`
}

type Peek struct {
	PollID    uuid.UUID `json:"poll_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
