package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crew",
	Short: "Multi-agent task orchestrator",
	Long: `Crew executes plans of interdependent agent tasks.

It schedules tasks into dependency stages, runs each stage concurrently
under a bounded worker pool, and protects the run with a per-category
circuit breaker, a result cache, and a cost budget. Results from earlier
tasks feed later tasks as context, and the run ends with a synthesized
summary of every task's outcome.

Core capabilities:
- Orders tasks by dependency into parallel stages
- Dispatches tasks to category-specific agent invokers
- Retries transient failures with exponential backoff
- Caches results so repeated tasks cost nothing
- Enforces a soft cost budget across the run`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
