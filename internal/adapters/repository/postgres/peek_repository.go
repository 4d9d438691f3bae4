package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

type peekRepository struct {
	db *sql.DB
}

func NewPeekRepository(db *sql.DB) ports.PeekRepository {
	return &peekRepository{
		db: db,
	}
}

func (r *peekRepository) ClaimPeek(ctx context.Context, pollID, userID uuid.UUID) (*domain.AnswerCounts, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO poll_peeks (poll_id, user_id) VALUES ($1, $2)`, pollID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyPeeked
		}
		return nil, fmt.Errorf("failed to record peek: %w", err)
	}

	counts, err := countAnswers(ctx, tx, pollID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return counts, nil
}

func (r *peekRepository) HasPeeked(ctx context.Context, pollID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM poll_peeks WHERE poll_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, pollID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check peek: %w", err)
	}
	return exists, nil
}
