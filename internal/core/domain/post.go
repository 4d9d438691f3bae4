package domain

import (
	"time"

	"github.com/google/uuid"
)

type PostKind string

const (
	// PostKindPost is the creator's general post stream.
	PostKindPost PostKind = "post"
	// PostKindAnnouncement is the school-scoped announcement board.
	PostKindAnnouncement PostKind = "announcement"
)

const AnnouncementLifetime = 14 * 24 * time.Hour

type Post struct {
	ID        uuid.UUID  `json:"id"`
	Kind      PostKind   `json:"kind"`
	AuthorID  uuid.UUID  `json:"author_id"`
	School    *string    `json:"school,omitempty"`
	Title     string     `json:"title,omitempty"`
	Content   string     `json:"content"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type EventType string

const (
	EventResponseRecorded EventType = "response.recorded"
	EventPollUnlocked     EventType = "poll.unlocked"
)

// PollEvent is emitted to the external change feed.
type PollEvent struct {
	Type            EventType  `json:"type"`
	PollID          uuid.UUID  `json:"poll_id"`
	ResponseCount   int        `json:"response_count"`
	RevealThreshold int        `json:"reveal_threshold"`
	ResultPostID    *uuid.UUID `json:"result_post_id,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}
