package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/database/postgres"
)

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// formatDuration formats a duration as a human-readable string
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// newProgressBar creates a progress bar with the shared CLI style.
func newProgressBar(count int, description, itsString string) *progressbar.ProgressBar {
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(itsString),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

// initPostgresBackend connects to PostgreSQL, runs migrations and registers
// the enrollment and vote repositories with the backend provider. Commands
// fetch the repositories through the database.Get* accessors afterwards;
// the concrete enrollment repository is returned for HNSW index management.
func initPostgresBackend(cfg *config.Config) (*postgres.EnrollmentRepository, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	pool := postgres.GetGlobalPool()
	enrollmentRepo := postgres.NewEnrollmentRepository(pool)
	voteRepo := postgres.NewVoteRepository(pool)

	database.RegisterPostgresBackend(
		func() database.EnrollmentReader { return enrollmentRepo },
		func() database.EnrollmentWriter { return enrollmentRepo },
		func() database.VoteWriter { return voteRepo },
	)
	database.RegisterEnrollmentHNSWRebuilder(enrollmentRepo)

	return enrollmentRepo, nil
}

// initEnrollmentHNSW builds or loads the enrollment HNSW index for fast similarity search.
func initEnrollmentHNSW(ctx context.Context, repo *postgres.EnrollmentRepository, indexPath string) {
	if indexPath != "" {
		fmt.Printf("Loading enrollment HNSW index from %s...\n", indexPath)
	} else {
		fmt.Printf("Building in-memory HNSW index for enrollment matching...\n")
	}
	if err := repo.EnableHNSW(ctx, indexPath); err != nil {
		fmt.Printf("Warning: Failed to build enrollment HNSW index: %v\n", err)
		fmt.Printf("Identification will use PostgreSQL queries (slower)\n")
	} else if indexPath != "" {
		fmt.Printf("Enrollment HNSW index ready with %d enrollments (persisted to %s)\n", repo.HNSWCount(), indexPath)
	} else {
		fmt.Printf("Enrollment HNSW index built with %d enrollments (in-memory only)\n", repo.HNSWCount())
	}
}
