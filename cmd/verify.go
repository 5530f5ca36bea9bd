package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/constants"
	"github.com/votersentry/voter-sentry/internal/embedder"
	"github.com/votersentry/voter-sentry/internal/recognize"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <image-a> <image-b>",
	Short: "Verify whether two face images show the same person",
	Long: `Verify whether two face images show the same person.

Both images are sent to the embedding server and their embeddings are
compared by cosine similarity. The pair is verified when the similarity
reaches the threshold.

Examples:
  # Verify with the model's default threshold
  voter-sentry verify capture.jpg enrollment.jpg

  # Verify with a custom threshold
  voter-sentry verify capture.jpg enrollment.jpg --threshold 0.8

  # JSON output
  voter-sentry verify capture.jpg enrollment.jpg --json`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Float64("threshold", 0, "Cosine similarity threshold (defaults to the model threshold)")
	verifyCmd.Flags().Bool("json", false, "Output as JSON")
}

// VerifyResult represents the result of a verify operation
type VerifyResult struct {
	ImageA     string  `json:"image_a"`
	ImageB     string  `json:"image_b"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
	Verified   bool    `json:"verified"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	threshold := mustGetFloat64(cmd, "threshold")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	if !cmd.Flags().Changed("threshold") {
		threshold = cfg.GetModelThresholds(cfg.Embedder.Model).Verify
	}

	client := embedder.NewClient(cfg.Embedder.URL, cfg.Embedder.Model)

	embeddingA, err := computeImageEmbedding(ctx, client, args[0])
	if err != nil {
		return err
	}
	embeddingB, err := computeImageEmbedding(ctx, client, args[1])
	if err != nil {
		return err
	}

	result, err := recognize.Verify(recognize.Embedding(embeddingA), recognize.Embedding(embeddingB), threshold)
	if err != nil {
		return err
	}

	out := VerifyResult{
		ImageA:     args[0],
		ImageB:     args[1],
		Similarity: result.Similarity,
		Threshold:  result.Threshold,
		Verified:   result.Verified,
	}

	if jsonOutput {
		return outputJSON(out)
	}

	fmt.Printf("Similarity: %.4f (threshold %.2f)\n", out.Similarity, out.Threshold)
	if out.Verified {
		fmt.Println("Result:     MATCH")
	} else {
		fmt.Println("Result:     NO MATCH")
	}
	return nil
}

// computeImageEmbedding reads, downscales and embeds a single face image.
func computeImageEmbedding(ctx context.Context, client *embedder.Client, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	resized, err := embedder.ResizeImage(data, constants.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", path, err)
	}

	embedding, err := client.ComputeSingleFaceEmbedding(ctx, resized)
	if err != nil {
		return nil, fmt.Errorf("failed to compute embedding for %s: %w", path, err)
	}
	return embedding, nil
}
