package domain

import (
	"time"

	"github.com/google/uuid"
)

type Scope string

const (
	ScopeAll    Scope = "all"
	ScopeSchool Scope = "school"
	ScopeYear   Scope = "year"
	ScopeClass  Scope = "class"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeAll, ScopeSchool, ScopeYear, ScopeClass:
		return true
	}
	return false
}

const (
	DefaultRevealThreshold = 10
	MinRevealThreshold     = 2
	MaxRevealThreshold     = 100
)

// ClampThreshold applies the default when t is nil and keeps the result
// inside [MinRevealThreshold, MaxRevealThreshold].
func ClampThreshold(t *int) int {
	if t == nil {
		return DefaultRevealThreshold
	}
	switch {
	case *t < MinRevealThreshold:
		return MinRevealThreshold
	case *t > MaxRevealThreshold:
		return MaxRevealThreshold
	}
	return *t
}

type Poll struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Scope             Scope      `json:"scope"`
	TargetSchool      *string    `json:"target_school,omitempty"`
	TargetYear        *int       `json:"target_year,omitempty"`
	TargetClass       *string    `json:"target_class,omitempty"`
	Active            bool       `json:"active"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	RevealThreshold   int        `json:"reveal_threshold"`
	ResponseCount     int        `json:"response_count"`
	ResultsUnlockedAt *time.Time `json:"results_unlocked_at,omitempty"`
	Anonymous         bool       `json:"anonymous"`
	ResultPostID      *uuid.UUID `json:"result_post_id,omitempty"`
	Questions         []Question `json:"questions"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (p *Poll) Unlocked() bool {
	return p.ResultsUnlockedAt != nil
}

// Open reports whether the poll currently accepts responses.
func (p *Poll) Open(now time.Time) bool {
	if !p.Active {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

func (p *Poll) Question(id uuid.UUID) (*Question, bool) {
	for i := range p.Questions {
		if p.Questions[i].ID == id {
			return &p.Questions[i], true
		}
	}
	return nil, false
}

type Question struct {
	ID         uuid.UUID `json:"id"`
	PollID     uuid.UUID `json:"poll_id"`
	OrderIndex int       `json:"order_index"`
	Text       string    `json:"text"`
	Label      string    `json:"label,omitempty"`
	Options    []Option  `json:"options"`
}

func (q *Question) HasOption(id uuid.UUID) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

type Option struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	OrderIndex int       `json:"order_index"`
	Text       string    `json:"text"`
}

// Counter is the state of the denormalized response counter right after an
// atomic increment.
type Counter struct {
	ResponseCount     int
	RevealThreshold   int
	ResultsUnlockedAt *time.Time
}

// PollView is a poll as seen by one viewer.
type PollView struct {
	*Poll
	HasAnswered bool `json:"has_answered"`
	HasPeeked   bool `json:"has_peeked"`
	Unlocked    bool `json:"results_unlocked"`
}
