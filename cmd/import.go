package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/database"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import enrollments and vote records from a file",
	Long: `Import enrollments and vote records from a gob-encoded backup
file created by the export command.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	if _, err := initPostgresBackend(cfg); err != nil {
		return err
	}
	enrollments, err := database.GetEnrollmentWriter(ctx)
	if err != nil {
		return err
	}
	voteStore, err := database.GetVoteWriter(ctx)
	if err != nil {
		return err
	}

	data, err := database.LoadExport(args[0])
	if err != nil {
		return err
	}

	if len(data.Enrollments) > 0 {
		if err := enrollments.SaveBatch(ctx, data.Enrollments); err != nil {
			return fmt.Errorf("failed to import enrollments: %w", err)
		}
	}
	if len(data.Votes) > 0 {
		if err := voteStore.SaveVotes(ctx, data.Votes); err != nil {
			return fmt.Errorf("failed to import votes: %w", err)
		}
	}

	fmt.Printf("Imported %d enrollments and %d votes from %s (exported %s)\n",
		len(data.Enrollments), len(data.Votes), args[0], data.ExportedAt.Format("2006-01-02 15:04"))
	return nil
}
