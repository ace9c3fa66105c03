package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Mercator Ganymede - LLM streaming resilience and migration layer",
	Long: `Mercator Ganymede manages streaming LLM sessions with ordered chunk
delivery, per-provider circuit breakers, and retry/fallback/terminate
error handling.

It routes traffic between a legacy client and the new reqllm path
using a percentage rollout with feature flags, and rolls the migration
back automatically when system health degrades.`,
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
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
