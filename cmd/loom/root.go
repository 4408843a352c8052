package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Parallel subtask execution engine",
	Long: `Loom executes plans of concurrent subtasks against Claude and weaves
their outputs into one answer.

A plan groups subtasks into numbered stages: groups run sequentially,
the subtasks inside a group run in parallel. While a group runs, every
subtask streams into its own pane of a live terminal view. When the last
group finishes, a merge call synthesizes all subtask outputs into a
single final answer for the original request.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(versionCmd)
}
