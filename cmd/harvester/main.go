// Package main provides the harvester CLI: an HTTP control server and a
// one-shot extraction command for the recruiter applicant view.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Collect job applicants from the LinkedIn hiring view",
	Long: "harvester drives a logged-in Chrome tab through the paginated applicant list of a job posting, " +
		"downloads each resume, summarizes work experience and exports the result as a spreadsheet.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
