package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/embedder"
	"github.com/votersentry/voter-sentry/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audit web server",
	Long: `Start the Voter Sentry web server.
The server exposes a JSON API for face verification, voter identification,
enrollment management and vote auditing.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// saveHNSWIndexes saves the enrollment HNSW index to disk during shutdown.
func saveHNSWIndexes() {
	if rebuilder := database.GetEnrollmentHNSWRebuilder(); rebuilder != nil {
		if err := rebuilder.SaveHNSWIndex(); err != nil {
			fmt.Printf("Warning: failed to save enrollment HNSW index: %v\n", err)
		} else {
			fmt.Println("Enrollment HNSW index saved to disk")
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	enrollmentRepo, err := initPostgresBackend(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	initEnrollmentHNSW(ctx, enrollmentRepo, cfg.Database.HNSWIndexPath)

	enrollments, err := database.GetEnrollmentWriter(ctx)
	if err != nil {
		return err
	}
	voteStore, err := database.GetVoteWriter(ctx)
	if err != nil {
		return err
	}

	var embedClient *embedder.Client
	if cfg.Embedder.URL != "" {
		embedClient = embedder.NewClient(cfg.Embedder.URL, cfg.Embedder.Model)
		fmt.Printf("Embedding server: %s (model %s)\n", cfg.Embedder.URL, embedClient.Model())
	} else {
		fmt.Println("EMBEDDER_URL not set, image endpoints disabled")
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, enrollments, voteStore, embedClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		saveHNSWIndexes()

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Voter Sentry API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
