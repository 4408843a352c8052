package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loom-sh/loom/internal/backend"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Request a running plan to stop",
	Long: `Signal the plan running in this project to stop between groups.

The in-flight group always finishes; groups that have not started yet
will not start. Subtasks are never cancelled mid-stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}

		watcher, err := backend.NewSignalWatcher(workDir)
		if err != nil {
			return fmt.Errorf("open signal directory: %w", err)
		}
		defer watcher.Close()

		if err := watcher.SendStop(); err != nil {
			return fmt.Errorf("send stop signal: %w", err)
		}
		fmt.Println("Stop requested; the current group will finish first.")
		return nil
	},
}
