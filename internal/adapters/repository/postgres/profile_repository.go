package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
)

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ports.ProfileRepository {
	return &profileRepository{
		db: db,
	}
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `
		SELECT id, full_name, school, graduation_year, class_name, role = 'admin'
		FROM profiles
		WHERE id = $1
	`
	var p domain.Profile
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.FullName, &p.School, &p.GraduationYear, &p.ClassName, &p.IsAdmin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}
