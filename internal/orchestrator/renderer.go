package orchestrator

import (
	"sync"

	"github.com/loom-sh/loom/pkg/models"
)

// Renderer consumes buffer store snapshots and presents them while a plan
// executes. Implementations run on their own schedule and must never
// block subtask execution beyond the store's per-entry critical section.
//
// Rendering is decoupled from correctness: a renderer that fails to start
// or dies mid-run is logged and replaced by the plain linear path;
// execution is never aborted by a renderer.
type Renderer interface {
	// Start begins rendering for the given plan. It must not block.
	Start(plan *models.Plan, store *BufferStore) error
	// Stop ends rendering and waits for the final frame to flush.
	Stop()
	// Failed reports a render loop failure after a successful Start.
	// The channel closes when the loop exits; a renderer that cannot
	// fail mid-run may return nil.
	Failed() <-chan error
}

// renderSession owns the renderer for one plan execution. If the active
// renderer's run loop fails after starting, the session logs the failure
// and switches to the plain renderer so the remaining subtask output
// stays visible.
type renderSession struct {
	mu      sync.Mutex
	active  Renderer
	stopped bool
}

// startRenderSession selects and starts a renderer for the plan and, when
// a fallback exists, begins watching the active renderer for mid-run
// failure.
func (o *Orchestrator) startRenderSession(plan *models.Plan, store *BufferStore) *renderSession {
	renderer := o.selectRenderer(plan, store)
	s := &renderSession{active: renderer}

	if renderer != nil && renderer != o.plain && o.plain != nil {
		go s.watch(renderer, o.plain, plan, store)
	}
	return s
}

// watch blocks until the active renderer's run loop exits, then performs
// the fallback if it exited with an error.
func (s *renderSession) watch(active, plain Renderer, plan *models.Plan, store *BufferStore) {
	ch := active.Failed()
	if ch == nil {
		return
	}

	err, ok := <-ch
	if !ok || err == nil {
		return
	}
	debugLog("[orchestrator] renderer failed mid-run, using plain output: %v", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.active != active {
		return
	}

	active.Stop()
	s.active = nil
	if perr := plain.Start(plan, store); perr != nil {
		debugLog("[orchestrator] plain renderer failed, continuing unrendered: %v", perr)
		return
	}
	s.active = plain
}

// Stop ends whichever renderer is currently active.
func (s *renderSession) Stop() {
	s.mu.Lock()
	s.stopped = true
	active := s.active
	s.active = nil
	s.mu.Unlock()

	if active != nil {
		active.Stop()
	}
}
