package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/database/mariadb"
	"github.com/votersentry/voter-sentry/internal/roll"
)

var rollCmd = &cobra.Command{
	Use:   "roll",
	Short: "Query the electoral roll registry",
	Long: `Query the electoral roll registry (MariaDB).

Requires the REGISTRY_DATABASE_URL environment variable.`,
}

var rollLookupCmd = &cobra.Command{
	Use:   "lookup <voter-id>",
	Short: "Look up a voter on the electoral roll",
	Args:  cobra.ExactArgs(1),
	RunE:  runRollLookup,
}

var rollListCmd = &cobra.Command{
	Use:   "list",
	Short: "List voters registered in a constituency",
	RunE:  runRollList,
}

var rollCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count registered voters and constituencies",
	RunE:  runRollCount,
}

func init() {
	rootCmd.AddCommand(rollCmd)
	rollCmd.AddCommand(rollLookupCmd)
	rollCmd.AddCommand(rollListCmd)
	rollCmd.AddCommand(rollCountCmd)

	rollLookupCmd.Flags().Bool("json", false, "Output as JSON")
	rollListCmd.Flags().String("constituency", "", "Constituency to list (required)")
	rollListCmd.Flags().Bool("json", false, "Output as JSON")
}

func connectRegistry(cfg *config.Config) (*mariadb.Pool, error) {
	if cfg.Registry.DSN == "" {
		return nil, errors.New("REGISTRY_DATABASE_URL environment variable is required")
	}
	registry, err := mariadb.NewPool(cfg.Registry.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to registry: %w", err)
	}
	return registry, nil
}

func runRollLookup(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	registry, err := connectRegistry(cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	voter, err := registry.GetVoter(ctx, args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(voter)
	}

	fmt.Printf("Voter ID:     %s\n", voter.VoterID)
	fmt.Printf("Name:         %s\n", voter.Name)
	fmt.Printf("Constituency: %s\n", voter.Constituency)
	fmt.Printf("Normalized:   %s\n", roll.NormalizeVoterName(voter.Name))
	return nil
}

func runRollList(cmd *cobra.Command, args []string) error {
	constituency := mustGetString(cmd, "constituency")
	jsonOutput := mustGetBool(cmd, "json")

	if constituency == "" {
		return errors.New("--constituency is required")
	}

	ctx := context.Background()
	cfg := config.Load()

	registry, err := connectRegistry(cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	voters, err := registry.ListByConstituency(ctx, constituency)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(voters)
	}

	if len(voters) == 0 {
		fmt.Printf("No voters registered in %s\n", constituency)
		return nil
	}

	fmt.Printf("Voters registered in %s:\n", constituency)
	for _, v := range voters {
		fmt.Printf("  %-12s %s\n", v.VoterID, v.Name)
	}
	fmt.Printf("Total: %d\n", len(voters))
	return nil
}

func runRollCount(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	registry, err := connectRegistry(cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	count, err := registry.CountVoters(ctx)
	if err != nil {
		return err
	}
	constituencies, err := registry.Constituencies(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Registered voters: %d\n", count)
	fmt.Printf("Constituencies:    %d\n", len(constituencies))
	for _, c := range constituencies {
		fmt.Printf("  %s\n", c)
	}
	return nil
}
