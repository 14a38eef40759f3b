package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Meridian - compliance scoping decision engine",
	Long: `Meridian decides whether data assets fall in or out of scope for
compliance commitments.

Each decision combines three evidence sources:
  - Policy retrieval over ingested commitment documents
  - Prior human feedback on similar assets
  - Agreement between past decisions and their reviews

Every workflow run is checkpointed stage by stage, so any decision can be
audited and replayed after the fact. Low-evidence runs are gated to an
insufficient-data outcome with clarifying questions instead of a guess.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "meridian.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format (text or json)")
}
