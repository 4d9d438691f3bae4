package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

type responseRepository struct {
	db *sql.DB
}

func NewResponseRepository(db *sql.DB) ports.ResponseRepository {
	return &responseRepository{
		db: db,
	}
}

func (r *responseRepository) Save(ctx context.Context, response *domain.Response) error {
	answers, err := json.Marshal(response.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	query := `
		INSERT INTO poll_responses (id, poll_id, user_id, answers, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.db.ExecContext(ctx, query, response.ID, response.PollID, response.UserID, answers, response.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyAnswered
		}
		return fmt.Errorf("failed to save response: %w", err)
	}
	return nil
}

func (r *responseRepository) HasAnswered(ctx context.Context, pollID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM poll_responses WHERE poll_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, pollID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check response: %w", err)
	}
	return exists, nil
}

func (r *responseRepository) GetByUser(ctx context.Context, pollID, userID uuid.UUID) (*domain.Response, error) {
	query := `
		SELECT id, poll_id, user_id, answers, created_at
		FROM poll_responses
		WHERE poll_id = $1 AND user_id = $2
	`
	var (
		response domain.Response
		answers  []byte
	)
	err := r.db.QueryRowContext(ctx, query, pollID, userID).Scan(
		&response.ID, &response.PollID, &response.UserID, &answers, &response.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get response: %w", err)
	}

	if err := json.Unmarshal(answers, &response.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	return &response, nil
}
