package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loom-sh/loom/internal/backend"
	"github.com/loom-sh/loom/internal/config"
	"github.com/loom-sh/loom/internal/orchestrator"
	"github.com/loom-sh/loom/internal/plan"
	"github.com/loom-sh/loom/internal/state"
	"github.com/loom-sh/loom/internal/tui"
	"github.com/loom-sh/loom/pkg/models"
)

var (
	runPlanFile string
	runHeadless bool
	runNoSave   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a plan of parallel subtasks",
	Long: `Execute a plan file: groups run in order, subtasks within a group run
concurrently, and a final merge call synthesizes all outputs.

Each subtask streams into its own pane of a live multi-pane view when
any group runs more than one subtask; otherwise output prints linearly.
Use --headless to force linear output, e.g. when piping.

A stop request (loom stop) takes effect between groups: the in-flight
group always finishes, later groups do not start.`,
	RunE: runPlan,
}

func init() {
	runCmd.Flags().StringVarP(&runPlanFile, "plan", "p", "plan.yaml", "Plan file to execute")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Disable the multi-pane view, print linearly")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Skip writing the run to history")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	p, err := plan.Load(runPlanFile)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	if os.Getenv("LOOM_DEBUG") != "" {
		logger, err := orchestrator.NewDebugLogger(".loom/debug.log")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer logger.Close()
		orchestrator.SetLogger(logger)
	}

	client, err := backend.NewClient(backend.ClientConfig{
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return err
	}

	opts := []orchestrator.Option{
		orchestrator.WithPlainRenderer(tui.NewPlainRenderer(cfg.TUI.RefreshRate)),
	}
	if !runHeadless {
		opts = append(opts, orchestrator.WithRenderer(tui.NewPaneRenderer(cfg.TUI.RefreshRate)))
	}

	watcher, err := backend.NewSignalWatcher(workDir)
	if err == nil {
		watcher.Clear()
		defer watcher.Close()
		opts = append(opts, orchestrator.WithStopChecker(watcher))
	}

	orch, err := orchestrator.New(orchestrator.RequiredConfig{
		Config:   cfg,
		Sources:  client.OpenStream,
		Complete: client.Complete,
	}, opts...)
	if err != nil {
		return err
	}

	started := time.Now()
	result, runErr := orch.ExecutePlan(context.Background(), p)

	if result != nil && !runNoSave {
		if err := saveHistory(result, p, workDir, started); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save run history: %v\n", err)
		}
	}

	if result != nil {
		printResult(result, client)
	}
	return runErr
}

// saveHistory records the finished run in the project-local database.
func saveHistory(result *models.PlanResult, p *models.Plan, workDir string, started time.Time) error {
	db, err := state.OpenProject(workDir)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	return db.SaveRun(result, p, started)
}

// printResult prints the merged output followed by the per-subtask summary.
func printResult(result *models.PlanResult, client *backend.Client) {
	if result.Merged != "" {
		fmt.Println(result.Merged)
		fmt.Println()
	}

	header := "Run %s finished in %s"
	if result.Degraded {
		header = "Run %s finished in %s (degraded: some subtasks failed)"
	}
	fmt.Printf(header+"\n", result.RunID, result.Duration.Round(time.Millisecond))

	for _, st := range result.Subtasks {
		switch st.Status {
		case models.StatusComplete:
			fmt.Printf("  %s %s (group %d, %s)\n",
				color.GreenString("✓"), st.ID, st.Group, st.Duration.Round(time.Millisecond))
		case models.StatusFailed:
			fmt.Printf("  %s %s (group %d): %s\n",
				color.RedString("✗"), st.ID, st.Group, st.Error)
		default:
			fmt.Printf("  %s %s (group %d): not started\n",
				color.YellowString("○"), st.ID, st.Group)
		}
	}

	input, output := client.Tracker().Total()
	if input > 0 || output > 0 {
		fmt.Printf("  tokens: %d in / %d out over %d calls\n", input, output, client.Tracker().Calls())
	}
	if result.MergeError != "" {
		fmt.Printf("  %s merge failed: %s\n", color.RedString("✗"), result.MergeError)
	}
}
