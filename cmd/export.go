package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/database"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export enrollments and vote records to a file",
	Long: `Export all enrollments and vote records from PostgreSQL to a
gob-encoded backup file. The file can be loaded back with the import
command, for example on another instance.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	if _, err := initPostgresBackend(cfg); err != nil {
		return err
	}
	enrollmentStore, err := database.GetEnrollmentReader(ctx)
	if err != nil {
		return err
	}
	voteStore, err := database.GetVoteReader(ctx)
	if err != nil {
		return err
	}

	enrollments, err := enrollmentStore.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load enrollments: %w", err)
	}

	votes, err := voteStore.GetVotes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load votes: %w", err)
	}

	if err := database.SaveExport(args[0], enrollments, votes); err != nil {
		return err
	}

	fmt.Printf("Exported %d enrollments and %d votes to %s\n", len(enrollments), len(votes), args[0])
	return nil
}
