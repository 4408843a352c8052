package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loom-sh/loom/internal/state"
	"github.com/loom-sh/loom/pkg/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past runs",
	Long: `List recent runs recorded in the project history, or show one run's
merged output and per-subtask transcripts by ID.`,
	Args: cobra.MaximumNArgs(1),
	RunE: showHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
}

func showHistory(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	db, err := state.OpenProject(workDir)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}

	if len(args) == 1 {
		return showRun(db, args[0])
	}
	return listRuns(db)
}

func listRuns(db *state.DB) error {
	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, r := range runs {
		marker := color.GreenString("✓")
		if r.Degraded || r.MergeErr != "" {
			marker = color.YellowString("⚠")
		}
		fmt.Printf("%s %s  %s  %s  %s\n",
			marker, r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Duration.Round(time.Millisecond), summarize(r.Request, 60))
	}
	return nil
}

func showRun(db *state.DB, id string) error {
	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run %q in history", id)
	}

	fmt.Printf("Run %s (%s, %s)\n", run.ID,
		run.StartedAt.Local().Format("2006-01-02 15:04"), run.Duration.Round(time.Millisecond))
	fmt.Printf("Request: %s\n\n", run.Request)

	transcripts, err := db.GetTranscripts(id)
	if err != nil {
		return err
	}
	for _, tr := range transcripts {
		marker := color.GreenString("✓")
		if tr.Status == models.StatusFailed {
			marker = color.RedString("✗")
		}
		fmt.Printf("%s %s (group %d, %s)\n", marker, tr.SubtaskID, tr.Group,
			tr.Duration.Round(time.Millisecond))
		if tr.Error != "" {
			fmt.Printf("  error: %s\n", tr.Error)
		}
	}

	if run.Merged != "" {
		fmt.Printf("\n%s\n", run.Merged)
	}
	if run.MergeErr != "" {
		fmt.Printf("\nmerge failed: %s\n", run.MergeErr)
	}
	return nil
}

// summarize truncates a request to fit on a listing line. The cut is on
// a rune boundary so multibyte requests stay valid UTF-8.
func summarize(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
