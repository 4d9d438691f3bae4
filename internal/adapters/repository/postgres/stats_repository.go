package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

type statsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) ports.StatsRepository {
	return &statsRepository{
		db: db,
	}
}

func (r *statsRepository) GetAnswerCounts(ctx context.Context, pollID uuid.UUID) (*domain.AnswerCounts, error) {
	return countAnswers(ctx, r.db, pollID)
}

// countAnswers reads the total and the per-option tally in one statement so
// both come from the same snapshot. The total row has a NULL option.
func countAnswers(ctx context.Context, q querier, pollID uuid.UUID) (*domain.AnswerCounts, error) {
	query := `
		WITH r AS (
			SELECT answers FROM poll_responses WHERE poll_id = $1
		)
		SELECT NULL::uuid, COUNT(*) FROM r
		UNION ALL
		SELECT a.value::uuid, COUNT(*)
		FROM r CROSS JOIN LATERAL jsonb_each_text(r.answers) AS a(question_id, value)
		GROUP BY a.value
	`
	rows, err := q.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to count answers: %w", err)
	}
	defer rows.Close()

	counts := &domain.AnswerCounts{PerOption: make(map[uuid.UUID]int)}
	for rows.Next() {
		var (
			optionID uuid.NullUUID
			count    int
		)
		if err := rows.Scan(&optionID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan answer count: %w", err)
		}
		if !optionID.Valid {
			counts.Total = count
			continue
		}
		counts.PerOption[optionID.UUID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answer counts: %w", err)
	}
	return counts, nil
}
