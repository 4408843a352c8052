package tui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/loom-sh/loom/internal/orchestrator"
	"github.com/loom-sh/loom/pkg/models"
)

// PlainRenderer prints subtask output linearly, one line at a time, for
// terminals where the pane view cannot run. It implements
// orchestrator.Renderer by polling the buffer store and printing lines it
// has not seen yet.
type PlainRenderer struct {
	out     io.Writer
	refresh time.Duration

	mu      sync.Mutex
	store   *orchestrator.BufferStore
	printed map[string]int
	status  map[string]models.SubtaskStatus
	stop    chan struct{}
	done    chan struct{}
}

// NewPlainRenderer creates a plain renderer writing to stdout.
func NewPlainRenderer(refresh time.Duration) *PlainRenderer {
	return NewPlainRendererTo(os.Stdout, refresh)
}

// NewPlainRendererTo creates a plain renderer writing to out.
func NewPlainRendererTo(out io.Writer, refresh time.Duration) *PlainRenderer {
	if refresh <= 0 {
		refresh = DefaultRefreshRate
	}
	return &PlainRenderer{
		out:     out,
		refresh: refresh,
	}
}

// Start begins polling the store in a background goroutine.
func (r *PlainRenderer) Start(plan *models.Plan, store *orchestrator.BufferStore) error {
	r.store = store
	r.printed = make(map[string]int, len(plan.Subtasks))
	r.status = make(map[string]models.SubtaskStatus, len(plan.Subtasks))
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.flush()
			case <-r.stop:
				r.flush()
				return
			}
		}
	}()
	return nil
}

// Failed returns nil: the poll loop cannot fail after Start.
func (r *PlainRenderer) Failed() <-chan error {
	return nil
}

// Stop drains remaining lines and stops the poll loop.
func (r *PlainRenderer) Stop() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	<-r.done
	r.stop = nil
}

// flush prints every line appended since the last poll, prefixed with the
// subtask ID, plus a status line per transition.
func (r *PlainRenderer) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, snap := range r.store.Snapshot() {
		if prev := r.status[snap.ID]; prev != snap.Status {
			r.status[snap.ID] = snap.Status
			r.printStatus(snap)
		}

		seen := r.printed[snap.ID]
		total := snap.Total
		if total > seen {
			// Lines evicted before we saw them are gone; print what the
			// ring still holds.
			start := len(snap.Lines) - (total - seen)
			if start < 0 {
				start = 0
			}
			for _, line := range snap.Lines[start:] {
				fmt.Fprintf(r.out, "%s %s\n", color.CyanString("[%s]", snap.ID), line)
			}
			r.printed[snap.ID] = total
		}
	}
}

// printStatus prints one line per status transition.
func (r *PlainRenderer) printStatus(snap orchestrator.PaneSnapshot) {
	switch snap.Status {
	case models.StatusRunning:
		fmt.Fprintf(r.out, "%s %s started\n", color.CyanString("▸"), snap.ID)
	case models.StatusComplete:
		fmt.Fprintf(r.out, "%s %s complete\n", color.GreenString("✓"), snap.ID)
	case models.StatusFailed:
		fmt.Fprintf(r.out, "%s %s failed: %s\n", color.RedString("✗"), snap.ID, snap.Err)
	}
}
