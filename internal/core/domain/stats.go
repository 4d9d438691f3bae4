package domain

import (
	"math"

	"github.com/google/uuid"
)

// AnswerCounts is the raw tally of a poll's responses.
type AnswerCounts struct {
	Total     int               `json:"total"`
	PerOption map[uuid.UUID]int `json:"per_option"`
}

type OptionStats struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	Count      int       `json:"count"`
	Percentage int       `json:"percentage"`
}

type QuestionStats struct {
	ID      uuid.UUID     `json:"id"`
	Text    string        `json:"text"`
	Label   string        `json:"label,omitempty"`
	Options []OptionStats `json:"options"`
}

type PollStats struct {
	PollID        uuid.UUID       `json:"poll_id"`
	ResponseCount int             `json:"response_count"`
	Questions     []QuestionStats `json:"questions"`
	UserAnswers   Answers         `json:"user_answers"`
}

// Percentage rounds count/total to the nearest integer percent; zero total
// yields zero.
func Percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}

// BuildStats lays the counts over the poll structure in question/option order.
func BuildStats(poll *Poll, counts *AnswerCounts, userAnswers Answers) *PollStats {
	stats := &PollStats{
		PollID:        poll.ID,
		ResponseCount: counts.Total,
		Questions:     make([]QuestionStats, 0, len(poll.Questions)),
		UserAnswers:   userAnswers,
	}
	for _, q := range poll.Questions {
		qs := QuestionStats{
			ID:      q.ID,
			Text:    q.Text,
			Label:   q.Label,
			Options: make([]OptionStats, 0, len(q.Options)),
		}
		for _, opt := range q.Options {
			count := counts.PerOption[opt.ID]
			qs.Options = append(qs.Options, OptionStats{
				ID:         opt.ID,
				Text:       opt.Text,
				Count:      count,
				Percentage: Percentage(count, counts.Total),
			})
		}
		stats.Questions = append(stats.Questions, qs)
	}
	return stats
}
