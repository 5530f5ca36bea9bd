package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voter-sentry",
	Short: "A CLI tool for voter identity verification and fraud auditing",
	Long: `Voter Sentry verifies voter identities with face embeddings and audits
vote records for fraud. It enrolls voter face images into a PostgreSQL
gallery, identifies and verifies faces against it, and classifies vote
records as legitimate, identity theft, cross-constituency voting or
double voting.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
