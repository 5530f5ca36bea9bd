package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/fraud"
	"github.com/votersentry/voter-sentry/internal/roll"
)

var auditCmd = &cobra.Command{
	Use:   "audit <votes.csv>",
	Short: "Audit a batch of vote records for fraud",
	Long: `Audit a batch of vote records for fraud.

Each vote is checked for identity theft (claimed identity differs from
the presented one, or the face capture does not match the claimed
voter's enrollment), cross-constituency voting and double voting.

Examples:
  # Audit votes and print a summary
  voter-sentry audit votes.csv

  # Write the per-vote classification to a CSV report
  voter-sentry audit votes.csv --output report.csv

  # Store the audited votes in PostgreSQL
  voter-sentry audit votes.csv --store

  # JSON report
  voter-sentry audit votes.csv --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().String("output", "", "Write the per-vote classification to a CSV file")
	auditCmd.Flags().Bool("store", false, "Store the vote records in PostgreSQL")
	auditCmd.Flags().Bool("json", false, "Output the report as JSON")
	auditCmd.Flags().Float64("threshold", 0, "Cosine similarity threshold for face checks (defaults to the model threshold)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	outputPath := mustGetString(cmd, "output")
	store := mustGetBool(cmd, "store")
	jsonOutput := mustGetBool(cmd, "json")
	threshold := mustGetFloat64(cmd, "threshold")

	ctx := context.Background()
	cfg := config.Load()
	startTime := time.Now()

	if !cmd.Flags().Changed("threshold") {
		threshold = cfg.GetModelThresholds(cfg.Embedder.Model).Verify
	}

	if _, err := initPostgresBackend(cfg); err != nil {
		return err
	}
	enrollments, err := database.GetEnrollmentReader(ctx)
	if err != nil {
		return err
	}

	votes, err := roll.ReadVotesFile(args[0])
	if err != nil {
		return err
	}
	if len(votes) == 0 {
		fmt.Println("No vote records found.")
		return nil
	}

	if store {
		voteStore, err := database.GetVoteWriter(ctx)
		if err != nil {
			return err
		}
		if err := voteStore.SaveVotes(ctx, votes); err != nil {
			return fmt.Errorf("failed to store votes: %w", err)
		}
	}

	auditor := fraud.NewAuditor(enrollments, threshold)
	classified, err := auditor.Classify(ctx, votes)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	report := fraud.BuildReport(classified)

	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		if err := report.WriteCSV(f); err != nil {
			return err
		}
	}

	if jsonOutput {
		return report.WriteJSON(os.Stdout)
	}

	fmt.Println("Audit complete!")
	fmt.Printf("  Report ID:        %s\n", report.ReportID)
	fmt.Printf("  Total votes:      %d\n", report.TotalVotes)
	fmt.Printf("  Legitimate votes: %d\n", report.LegitimateVotes)
	fmt.Printf("  Suspicious votes: %d\n", report.SuspiciousVotes)
	fmt.Printf("  Unique voters:    %d\n", report.UniqueVoters)
	fmt.Printf("  Fraud rate:       %.1f%%\n", report.FraudRate)

	if report.SuspiciousVotes > 0 {
		fmt.Println("\nFraud breakdown:")
		for _, fraudType := range []fraud.FraudType{fraud.FraudIdentityTheft, fraud.FraudCrossConstituency, fraud.FraudDoubleVoting} {
			if count := report.FraudCounts[fraudType]; count > 0 {
				fmt.Printf("  %-34s %d\n", fraudType, count)
			}
		}
	}

	if len(report.Constituencies) > 0 {
		fmt.Println("\nPer constituency:")
		for _, stats := range report.Constituencies {
			fmt.Printf("  %-20s %d votes, %d suspicious, %d voters\n",
				stats.Constituency, stats.TotalVotes, stats.SuspiciousVotes, stats.UniqueVoters)
		}
	}

	if outputPath != "" {
		fmt.Printf("\nReport written to %s\n", outputPath)
	}
	fmt.Printf("\nDuration: %s\n", formatDuration(time.Since(startTime)))

	return nil
}
