package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/unirea/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/unirea/internal/config"
	"github.com/vncsmyrnk/unirea/internal/core/services"
)

// publishbackfill publishes the results post of every unlocked poll that
// has none, e.g. after the unlocking request failed to auto-publish.
func main() {
	config.LoadEnv()

	var dbCfg config.DB
	var timeout time.Duration
	config.RegisterDBFlags(flag.CommandLine, &dbCfg)
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Job timeout")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("postgres", dbCfg.ConnString())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	// The timeout covers connecting as well as the job itself.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	published, err := run(ctx, db)
	cancel()
	db.Close()
	if err != nil {
		slog.Error("result post backfill finished with errors", "published", published, "error", err)
		os.Exit(1)
	}

	slog.Info("result post backfill completed", "published", published)
}

func run(ctx context.Context, db *sql.DB) (int, error) {
	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to reach database: %w", err)
	}

	// Initialize Repositories
	pollRepo := postgres.NewPollRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	postRepo := postgres.NewPostRepository(db)

	// Initialize Services
	publishSvc := services.NewPublishService(pollRepo, profileRepo, postRepo)
	backfillSvc := services.NewBackfillService(pollRepo, publishSvc)

	slog.Info("starting result post backfill")
	return backfillSvc.BackfillResultPosts(ctx)
}
