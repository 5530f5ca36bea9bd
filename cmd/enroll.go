package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/constants"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/database/mariadb"
	"github.com/votersentry/voter-sentry/internal/embedder"
	"github.com/votersentry/voter-sentry/internal/roll"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <directory>",
	Short: "Enroll voter face images into the gallery",
	Long: `Enroll voter face images into the PostgreSQL gallery.

The directory must be laid out as <directory>/<constituency>/<voter_id>/
with one or more face images per voter. Each image is sent to the
embedding server and the resulting embedding is stored.

When REGISTRY_DATABASE_URL is set, voter names are resolved from the
electoral roll registry.

Examples:
  # Enroll all images under ./enrollments
  voter-sentry enroll ./enrollments

  # Enroll and write a manifest of what was stored
  voter-sentry enroll ./enrollments --manifest manifest.csv

  # Re-enroll voters that already have enrollments
  voter-sentry enroll ./enrollments --overwrite`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("manifest", "", "Write a CSV manifest of enrolled images")
	enrollCmd.Flags().Bool("overwrite", false, "Replace existing enrollments for scanned voters")
	enrollCmd.Flags().Int("batch-size", constants.DefaultPageSize, "Number of enrollments per database batch")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	manifestPath := mustGetString(cmd, "manifest")
	overwrite := mustGetBool(cmd, "overwrite")
	batchSize := mustGetInt(cmd, "batch-size")

	ctx := context.Background()
	cfg := config.Load()
	startTime := time.Now()

	if _, err := initPostgresBackend(cfg); err != nil {
		return err
	}
	enrollments, err := database.GetEnrollmentWriter(ctx)
	if err != nil {
		return err
	}

	client := embedder.NewClient(cfg.Embedder.URL, cfg.Embedder.Model)

	// Optional electoral roll lookup for voter names.
	var registry *mariadb.Pool
	if cfg.Registry.DSN != "" {
		fmt.Println("Connecting to electoral roll registry...")
		registry, err = mariadb.NewPool(cfg.Registry.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to registry: %w", err)
		}
		defer registry.Close()
	}

	fmt.Printf("Scanning %s for enrollment images...\n", args[0])
	images, err := roll.ScanEnrollmentDir(args[0])
	if err != nil {
		return err
	}
	if len(images) == 0 {
		fmt.Println("No enrollment images found.")
		return nil
	}
	fmt.Printf("Found %d images\n", len(images))

	if overwrite {
		seen := make(map[string]bool)
		for _, img := range images {
			if seen[img.VoterID] {
				continue
			}
			seen[img.VoterID] = true
			if _, err := enrollments.DeleteByVoter(ctx, img.VoterID); err != nil {
				return fmt.Errorf("failed to delete enrollments for %s: %w", img.VoterID, err)
			}
		}
	}

	bar := newProgressBar(len(images), "Enrolling", "images")

	var (
		batch    []database.StoredEnrollment
		manifest []roll.ManifestEntry
		enrolled int
		skipped  int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := enrollments.SaveBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	names := make(map[string]string)
	for _, img := range images {
		_ = bar.Add(1)

		if !overwrite {
			has, err := enrollments.Has(ctx, img.VoterID)
			if err != nil {
				return fmt.Errorf("failed to check enrollment for %s: %w", img.VoterID, err)
			}
			if has {
				skipped++
				continue
			}
		}

		data, err := os.ReadFile(img.Path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", img.Path, err)
		}

		resized, err := embedder.ResizeImage(data, constants.MaxImageSize)
		if err != nil {
			fmt.Printf("\nWarning: skipping %s: %v\n", img.Path, err)
			skipped++
			continue
		}

		embedding, err := client.ComputeSingleFaceEmbedding(ctx, resized)
		if err != nil {
			if errors.Is(err, embedder.ErrNoFaceDetected) || errors.Is(err, embedder.ErrMultipleFaces) {
				fmt.Printf("\nWarning: skipping %s: %v\n", img.Path, err)
				skipped++
				continue
			}
			return fmt.Errorf("failed to compute embedding for %s: %w", img.Path, err)
		}

		voterName, ok := names[img.VoterID]
		if !ok && registry != nil {
			if voter, err := registry.GetVoter(ctx, img.VoterID); err == nil {
				voterName = voter.Name
			}
			names[img.VoterID] = voterName
		}

		batch = append(batch, database.StoredEnrollment{
			VoterID:      img.VoterID,
			Constituency: img.Constituency,
			VoterName:    voterName,
			ImagePath:    img.Path,
			Embedding:    embedding,
			Model:        cfg.Embedder.Model,
			Dim:          len(embedding),
		})
		manifest = append(manifest, roll.ManifestEntry{
			VoterID:      img.VoterID,
			Constituency: img.Constituency,
			VoterName:    voterName,
			ImagePath:    img.Path,
		})
		enrolled++

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if manifestPath != "" {
		if err := roll.WriteManifestFile(manifestPath, manifest); err != nil {
			return err
		}
		fmt.Printf("\nManifest written to %s\n", manifestPath)
	}

	fmt.Println("\nEnrollment complete!")
	fmt.Printf("  Images enrolled: %d\n", enrolled)
	if skipped > 0 {
		fmt.Printf("  Images skipped:  %d\n", skipped)
	}
	fmt.Printf("  Duration:        %s\n", formatDuration(time.Since(startTime)))

	return nil
}
