package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) ports.PostRepository {
	return &postRepository{
		db: db,
	}
}

func (r *postRepository) PublishResult(ctx context.Context, pollID uuid.UUID, post *domain.Post) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	switch post.Kind {
	case domain.PostKindAnnouncement:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO announcements (id, author_id, school, title, content, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, post.ID, post.AuthorID, post.School, post.Title, post.Content, post.ExpiresAt, post.CreatedAt)
	default:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO posts (id, author_id, content, created_at)
			VALUES ($1, $2, $3, $4)
		`, post.ID, post.AuthorID, post.Content, post.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", post.Kind, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE polls SET result_post_id = $2 WHERE id = $1 AND result_post_id IS NULL`,
		pollID, post.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to link result post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrAlreadyPublished
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
