package tui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loom-sh/loom/internal/orchestrator"
	"github.com/loom-sh/loom/pkg/models"
)

// PaneRenderer runs the multi-pane bubbletea program alongside plan
// execution. It implements orchestrator.Renderer.
type PaneRenderer struct {
	refresh  time.Duration
	program  *tea.Program
	finished chan struct{}
	failed   chan error
}

// NewPaneRenderer creates a pane renderer refreshing at the given rate.
func NewPaneRenderer(refresh time.Duration) *PaneRenderer {
	return &PaneRenderer{refresh: refresh}
}

// Start launches the bubbletea program in its own goroutine. It fails
// when stdout is not a terminal, letting the caller fall back to plain
// output.
func (r *PaneRenderer) Start(plan *models.Plan, store *orchestrator.BufferStore) error {
	if fi, err := os.Stdout.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return fmt.Errorf("stdout is not a terminal")
	}

	app := NewPaneApp(plan, store, r.refresh)
	r.program = tea.NewProgram(app)
	r.finished = make(chan struct{})
	r.failed = make(chan error, 1)

	go func() {
		defer close(r.finished)
		if _, err := r.program.Run(); err != nil {
			r.failed <- err
		}
		close(r.failed)
	}()
	return nil
}

// Failed reports a run loop failure after a successful Start; the channel
// closes when the loop exits. The orchestrator watches it to fall back to
// plain output for the rest of the plan.
func (r *PaneRenderer) Failed() <-chan error {
	return r.failed
}

// Stop signals completion and waits for the final frame to be flushed.
func (r *PaneRenderer) Stop() {
	if r.program == nil {
		return
	}
	r.program.Send(doneMsg{})

	select {
	case <-r.finished:
	case <-time.After(2 * time.Second):
		// The program did not drain in time; kill it rather than hang.
		r.program.Kill()
	}
	r.program = nil
}
