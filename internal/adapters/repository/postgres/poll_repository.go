package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

const pollColumns = `
	id, title, description, scope, target_school, target_year, target_class,
	active, expires_at, created_by, reveal_threshold, response_count,
	results_unlocked_at, anonymous, result_post_id, created_at
`

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (
			id, title, description, scope, target_school, target_year, target_class,
			active, expires_at, created_by, reveal_threshold, anonymous, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, queryPoll,
		poll.ID, poll.Title, poll.Description, poll.Scope, poll.TargetSchool, poll.TargetYear, poll.TargetClass,
		poll.Active, poll.ExpiresAt, poll.CreatedBy, poll.RevealThreshold, poll.Anonymous, poll.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	questionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO poll_questions (id, poll_id, order_index, text, label)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare question statement: %w", err)
	}
	defer questionStmt.Close()

	optionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO poll_options (id, question_id, order_index, text)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", err)
	}
	defer optionStmt.Close()

	for _, q := range poll.Questions {
		if _, err := questionStmt.ExecContext(ctx, q.ID, poll.ID, q.OrderIndex, q.Text, q.Label); err != nil {
			return fmt.Errorf("failed to insert question: %w", err)
		}
		for _, opt := range q.Options {
			if _, err := optionStmt.ExecContext(ctx, opt.ID, q.ID, opt.OrderIndex, opt.Text); err != nil {
				return fmt.Errorf("failed to insert option: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`

	poll, err := scanPoll(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	questions, err := r.fetchQuestions(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Questions = questions

	return poll, nil
}

func (r *pollRepository) ListVisible(ctx context.Context, viewer *domain.Profile, limit, offset int) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls
		WHERE active
		  AND (expires_at IS NULL OR expires_at > NOW())
		  AND (
			$1::boolean
			OR created_by = $2
			OR scope = 'all'
			OR (scope = 'school' AND target_school = $3)
			OR (scope = 'year' AND target_school = $3 AND target_year = $4)
			OR (scope = 'class' AND target_school = $3 AND target_year = $4 AND target_class = $5)
		  )
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7
	`
	rows, err := r.db.QueryContext(ctx, query,
		viewer.IsAdmin, viewer.ID, viewer.School, viewer.GraduationYear, viewer.ClassName, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

func (r *pollRepository) Update(ctx context.Context, id uuid.UUID, update ports.PollUpdate) error {
	query := `
		UPDATE polls SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			expires_at = CASE WHEN $4::boolean THEN NULL ELSE COALESCE($5, expires_at) END,
			active = COALESCE($6, active),
			reveal_threshold = COALESCE($7, reveal_threshold)
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		id, update.Title, update.Description, update.ClearExpiry, update.ExpiresAt, update.Active, update.RevealThreshold,
	)
	if err != nil {
		return fmt.Errorf("failed to update poll: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}

func (r *pollRepository) IncrementResponseCount(ctx context.Context, id uuid.UUID) (*domain.Counter, error) {
	query := `
		UPDATE polls SET response_count = response_count + 1
		WHERE id = $1
		RETURNING response_count, reveal_threshold, results_unlocked_at
	`
	var c domain.Counter
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ResponseCount, &c.RevealThreshold, &c.ResultsUnlockedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to increment response count: %w", err)
	}
	return &c, nil
}

func (r *pollRepository) GetCounter(ctx context.Context, id uuid.UUID) (*domain.Counter, error) {
	query := `SELECT response_count, reveal_threshold, results_unlocked_at FROM polls WHERE id = $1`

	var c domain.Counter
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ResponseCount, &c.RevealThreshold, &c.ResultsUnlockedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get response count: %w", err)
	}
	return &c, nil
}

func (r *pollRepository) MarkResultsUnlocked(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE polls SET results_unlocked_at = $2
		WHERE id = $1 AND results_unlocked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to unlock poll results: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

func (r *pollRepository) ListUnlockedWithoutPost(ctx context.Context) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls
		WHERE results_unlocked_at IS NOT NULL AND result_post_id IS NULL
		ORDER BY results_unlocked_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpublished polls: %w", err)
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*domain.Poll, error) {
	var poll domain.Poll
	err := row.Scan(
		&poll.ID, &poll.Title, &poll.Description, &poll.Scope, &poll.TargetSchool, &poll.TargetYear, &poll.TargetClass,
		&poll.Active, &poll.ExpiresAt, &poll.CreatedBy, &poll.RevealThreshold, &poll.ResponseCount,
		&poll.ResultsUnlockedAt, &poll.Anonymous, &poll.ResultPostID, &poll.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepository) scanPolls(ctx context.Context, rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	rows.Close()

	for _, poll := range polls {
		questions, err := r.fetchQuestions(ctx, poll.ID)
		if err != nil {
			return nil, err
		}
		poll.Questions = questions
	}
	return polls, nil
}

func (r *pollRepository) fetchQuestions(ctx context.Context, pollID uuid.UUID) ([]domain.Question, error) {
	queryQuestions := `
		SELECT id, poll_id, order_index, text, label
		FROM poll_questions
		WHERE poll_id = $1
		ORDER BY order_index
	`
	rows, err := r.db.QueryContext(ctx, queryQuestions, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.PollID, &q.OrderIndex, &q.Text, &q.Label); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	queryOptions := `
		SELECT o.id, o.question_id, o.order_index, o.text
		FROM poll_options o
		JOIN poll_questions q ON q.id = o.question_id
		WHERE q.poll_id = $1
		ORDER BY q.order_index, o.order_index
	`
	optRows, err := r.db.QueryContext(ctx, queryOptions, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt domain.Option
		if err := optRows.Scan(&opt.ID, &opt.QuestionID, &opt.OrderIndex, &opt.Text); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		i := index[opt.QuestionID]
		questions[i].Options = append(questions[i].Options, opt)
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return questions, nil
}
