package orchestrator

import (
	"context"
	"sync"

	"github.com/loom-sh/loom/internal/backend"
	"github.com/loom-sh/loom/pkg/models"
)

// StopChecker reports whether an external stop has been requested.
// Checked only between groups; in-flight subtasks are never cancelled.
type StopChecker interface {
	ShouldStop() bool
}

// GroupScheduler executes a plan's groups in ascending numeric order,
// running every subtask of a group concurrently and advancing only when
// all of them are terminal.
type GroupScheduler struct {
	store   *BufferStore
	sources backend.SourceFactory
	signals StopChecker
}

// NewGroupScheduler creates a scheduler writing into the given store and
// opening streams through the given factory.
func NewGroupScheduler(store *BufferStore, sources backend.SourceFactory) *GroupScheduler {
	return &GroupScheduler{
		store:   store,
		sources: sources,
	}
}

// SetStopChecker installs an optional between-group stop check.
func (g *GroupScheduler) SetStopChecker(sc StopChecker) {
	g.signals = sc
}

// Run executes every group of the plan. A failed subtask does not abort
// its siblings; the group simply completes with a mix of terminal states.
// Returns true if all groups ran, false if a stop signal cut the plan
// short between groups.
func (g *GroupScheduler) Run(ctx context.Context, plan *models.Plan, defaultEngine string) bool {
	for _, group := range plan.Groups() {
		if g.signals != nil && g.signals.ShouldStop() {
			debugLog("[scheduler] stop requested, not starting group %d", group)
			return false
		}

		subtasks := plan.GroupSubtasks(group)
		debugLog("[scheduler] group %d: %d subtask(s)", group, len(subtasks))

		var wg sync.WaitGroup
		for _, st := range subtasks {
			engine := st.Engine
			if engine == "" {
				engine = defaultEngine
			}

			runner := NewSubtaskRunner(st, g.sources(ctx, st.ID, st.Instruction, engine), g.store)

			wg.Add(1)
			go func() {
				defer wg.Done()
				runner.Run(ctx)
			}()
		}
		wg.Wait()

		debugLog("[scheduler] group %d terminal", group)
	}
	return true
}
