package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/constants"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/embedder"
	"github.com/votersentry/voter-sentry/internal/recognize"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Identify a face image against the enrollment gallery",
	Long: `Identify a face image against the enrollment gallery.

The image is embedded and matched against stored enrollments. The
nearest k enrollments vote on the voter identity; ties go to the label
with the smaller total distance.

Examples:
  # Identify using the single nearest neighbor
  voter-sentry identify capture.jpg

  # Majority vote over the 5 nearest enrollments
  voter-sentry identify capture.jpg -k 5

  # JSON output
  voter-sentry identify capture.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().IntP("neighbors", "k", constants.DefaultNeighbors, "Number of nearest enrollments to vote")
	identifyCmd.Flags().Bool("json", false, "Output as JSON")
}

// IdentifyResult represents the result of an identify operation
type IdentifyResult struct {
	Image      string          `json:"image"`
	VoterID    string          `json:"voter_id"`
	Distance   float64         `json:"distance"`
	Votes      int             `json:"votes"`
	K          int             `json:"k"`
	Candidates []IdentifyMatch `json:"candidates"`
}

// IdentifyMatch is one gallery candidate considered during identification
type IdentifyMatch struct {
	VoterID      string  `json:"voter_id"`
	Constituency string  `json:"constituency"`
	Distance     float64 `json:"distance"`
}

func runIdentify(cmd *cobra.Command, args []string) error {
	k := mustGetInt(cmd, "neighbors")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	if _, err := initPostgresBackend(cfg); err != nil {
		return err
	}
	enrollments, err := database.GetEnrollmentReader(ctx)
	if err != nil {
		return err
	}

	client := embedder.NewClient(cfg.Embedder.URL, cfg.Embedder.Model)
	query, err := computeImageEmbedding(ctx, client, args[0])
	if err != nil {
		return err
	}

	limit := k * database.HNSWSearchMultiplier
	if limit < constants.DefaultHandlerPageSize {
		limit = constants.DefaultHandlerPageSize
	}
	candidates, err := enrollments.FindSimilar(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no enrollments available")
	}

	gallery := recognize.NewGallery()
	constituencies := make(map[string]string, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		constituencies[c.VoterID] = c.Constituency
		if err := gallery.Add(recognize.Label(c.VoterID), recognize.Embedding(c.Embedding)); err != nil {
			fmt.Printf("Warning: skipping enrollment %d for voter %s: %v\n", c.ID, c.VoterID, err)
		}
	}

	if k > gallery.Len() {
		k = gallery.Len()
	}

	match, err := gallery.FindNearest(recognize.Embedding(query), k)
	if err != nil {
		return err
	}

	result := IdentifyResult{
		Image:    args[0],
		VoterID:  string(match.Label),
		Distance: match.Distance,
		Votes:    match.Votes,
		K:        match.K,
	}
	for i := range candidates {
		c := &candidates[i]
		dist, err := recognize.EuclideanDistance(recognize.Embedding(query), recognize.Embedding(c.Embedding))
		if err != nil {
			continue
		}
		result.Candidates = append(result.Candidates, IdentifyMatch{
			VoterID:      c.VoterID,
			Constituency: c.Constituency,
			Distance:     dist,
		})
		if len(result.Candidates) >= k {
			break
		}
	}

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("Identified: %s (constituency %s)\n", result.VoterID, constituencies[result.VoterID])
	fmt.Printf("  Distance: %.4f\n", result.Distance)
	fmt.Printf("  Votes:    %d of %d\n", result.Votes, result.K)
	if len(result.Candidates) > 1 {
		fmt.Println("  Candidates:")
		for _, c := range result.Candidates {
			fmt.Printf("    %-12s %-12s %.4f\n", c.VoterID, c.Constituency, c.Distance)
		}
	}
	return nil
}
