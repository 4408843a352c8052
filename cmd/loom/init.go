package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a loom project",
	Long: `Initialize a directory for use with loom.

This command sets up everything needed to run loom:
  - Verifies ANTHROPIC_API_KEY is available
  - Creates the .loom directory (signals, history, debug log)
  - Creates a .loom.yaml config template and an example plan

The directory argument is optional and defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing template files")
}

const configTemplate = `# loom configuration (project-level override)
# Values here take precedence over ~/.config/loom/config.yaml.

defaults:
  # Preset tunes the merge stage: conservative, balanced, or thorough.
  preset: balanced
  # Default model selector for subtasks: haiku, sonnet, or opus.
  engine: sonnet

#merge:
#  # Explicit merge output cap; overrides the preset value when set.
#  max_tokens: 8192

#tui:
#  refresh_rate: 50ms
#  buffer_lines: 8
`

const examplePlan = `# Example loom plan. Groups run in order; subtasks within a group run
# in parallel. Run with: loom run --plan plan.yaml
request: "Compare the top Go web frameworks and recommend one"
subtasks:
  - id: gin
    group: 1
    instruction: "Summarize the strengths and weaknesses of the Gin web framework"
  - id: echo
    group: 1
    instruction: "Summarize the strengths and weaknesses of the Echo web framework"
  - id: recommend
    group: 2
    instruction: "Given common selection criteria, outline how to choose between Go web frameworks"
    engine: opus
`

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	for _, dir := range []string{".loom", filepath.Join(".loom", "signals")} {
		if err := os.MkdirAll(filepath.Join(absPath, dir), 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	printStatus("✓", "Created .loom directory structure", color.FgGreen)

	if created, err := writeTemplate(filepath.Join(absPath, ".loom.yaml"), configTemplate); err != nil {
		return err
	} else if created {
		printStatus("✓", "Created .loom.yaml config template", color.FgGreen)
	} else {
		printStatus("⚠", ".loom.yaml already exists (use --force to overwrite)", color.FgYellow)
	}

	if created, err := writeTemplate(filepath.Join(absPath, "plan.yaml"), examplePlan); err != nil {
		return err
	} else if created {
		printStatus("✓", "Created example plan.yaml", color.FgGreen)
	} else {
		printStatus("⚠", "plan.yaml already exists (use --force to overwrite)", color.FgYellow)
	}

	fmt.Printf("\n%s loom initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next: edit plan.yaml and run 'loom run --plan plan.yaml'")
	return nil
}

// writeTemplate writes content to path unless the file already exists and
// --force was not given. Returns whether the file was written.
func writeTemplate(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil && !initForce {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// printStatus prints a colored status symbol followed by a message.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
