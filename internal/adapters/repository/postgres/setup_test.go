package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, applyMigrations(db, "migrations"))
	return db
}

func applyMigrations(db *sql.DB, dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func insertProfile(t *testing.T, db *sql.DB, role string, school *string, year *int, class *string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO profiles (id, full_name, school, graduation_year, class_name, role) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, "Profile "+id.String()[:8], school, year, class, role,
	)
	require.NoError(t, err)
	return id
}

// newPoll builds a poll with the given question count, two options each.
func newPoll(creator uuid.UUID, questions int, threshold int) *domain.Poll {
	poll := &domain.Poll{
		ID:              uuid.New(),
		Title:           "Reuniune 10 ani",
		Scope:           domain.ScopeAll,
		Active:          true,
		CreatedBy:       creator,
		RevealThreshold: threshold,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
	for i := 0; i < questions; i++ {
		q := domain.Question{
			ID:         uuid.New(),
			PollID:     poll.ID,
			OrderIndex: i,
			Text:       fmt.Sprintf("Question %d", i+1),
		}
		for j, text := range []string{"Da", "Nu"} {
			q.Options = append(q.Options, domain.Option{ID: uuid.New(), QuestionID: q.ID, OrderIndex: j, Text: text})
		}
		poll.Questions = append(poll.Questions, q)
	}
	return poll
}

func ptr[T any](v T) *T {
	return &v
}
