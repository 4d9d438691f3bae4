package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/unirea/internal/config"
)

const migrationsDir = "internal/adapters/repository/postgres/migrations"

// migrations applies the SQL files under migrationsDir. "up" runs every
// *.up.sql in name order, "down" every *.down.sql in reverse order, and any
// other argument runs the single file whose name ends in "<arg>.sql".
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrations <up|down|name> [db flags]")
		os.Exit(2)
	}
	target := os.Args[1]

	config.LoadEnv()

	var dbCfg config.DB
	var dir string
	fs := flag.NewFlagSet("migrations", flag.ExitOnError)
	config.RegisterDBFlags(fs, &dbCfg)
	fs.StringVar(&dir, "dir", migrationsDir, "Migrations directory")
	fs.Parse(os.Args[2:])

	files, err := migrationFiles(dir, target)
	if err != nil {
		slog.Error("failed to resolve migrations", "target", target, "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", dbCfg.ConnString())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Error("failed to read migration", "file", name, "error", err)
			os.Exit(1)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			slog.Error("failed to execute migration", "file", name, "error", err)
			os.Exit(1)
		}
		slog.Info("migration applied", "file", name)
	}
}

func migrationFiles(dir, target string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var suffix string
	switch target {
	case "up", "down":
		suffix = "." + target + ".sql"
	default:
		suffix = target + ".sql"
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migration matches %q", target)
	}

	slices.Sort(files)
	if target == "down" {
		slices.Reverse(files)
	}
	if target != "up" && target != "down" && len(files) > 1 {
		return nil, fmt.Errorf("%q matches %d migrations", target, len(files))
	}
	return files, nil
}
