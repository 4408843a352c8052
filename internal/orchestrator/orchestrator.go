package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loom-sh/loom/internal/backend"
	"github.com/loom-sh/loom/internal/config"
	"github.com/loom-sh/loom/pkg/models"
)

// RequiredConfig contains the dependencies every Orchestrator needs.
type RequiredConfig struct {
	// Config is the loaded configuration.
	Config *config.Config
	// Sources opens a stream source per subtask.
	Sources backend.SourceFactory
	// Complete performs the blocking merge call.
	Complete CompleteFunc
}

// Option configures optional Orchestrator behavior.
type Option func(*Orchestrator)

// WithRenderer installs the multi-pane renderer used when a plan has a
// group with more than one subtask.
func WithRenderer(r Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithPlainRenderer installs the linear renderer used for single-subtask
// groups and as the fallback when the pane renderer fails.
func WithPlainRenderer(r Renderer) Option {
	return func(o *Orchestrator) { o.plain = r }
}

// WithStopChecker installs a between-group stop check.
func WithStopChecker(sc StopChecker) Option {
	return func(o *Orchestrator) { o.signals = sc }
}

// Orchestrator executes plans end to end: scheduling, streaming, live
// rendering, and the final merge.
type Orchestrator struct {
	cfg      *config.Config
	sources  backend.SourceFactory
	complete CompleteFunc

	renderer Renderer
	plain    Renderer
	signals  StopChecker
}

// New creates an Orchestrator from required dependencies and options.
func New(required RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if required.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if required.Sources == nil {
		return nil, fmt.Errorf("source factory is required")
	}
	if required.Complete == nil {
		return nil, fmt.Errorf("complete func is required")
	}

	o := &Orchestrator{
		cfg:      required.Config,
		sources:  required.Sources,
		complete: required.Complete,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// ExecutePlan runs the plan to completion and returns the merged final
// text plus per-subtask status and duration metadata.
//
// Subtask failures are isolated: only a plan in which every subtask
// failed, or a failed merge call, produces a non-nil error — and even
// then the returned result carries the partial per-subtask results.
func (o *Orchestrator) ExecutePlan(ctx context.Context, plan *models.Plan) (*models.PlanResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	runID := uuid.New().String()[:8]
	started := time.Now()
	debugLog("[orchestrator] run %s: %d subtask(s), %d group(s)", runID, len(plan.Subtasks), len(plan.Groups()))

	store := NewBufferStore(o.cfg.TUI.BufferLines)
	store.Register(plan)

	session := o.startRenderSession(plan, store)
	scheduler := NewGroupScheduler(store, o.sources)
	if o.signals != nil {
		scheduler.SetStopChecker(o.signals)
	}

	scheduler.Run(ctx, plan, o.cfg.Defaults.Engine)

	session.Stop()

	result := &models.PlanResult{
		RunID: runID,
	}
	for _, st := range plan.Subtasks {
		result.Subtasks = append(result.Subtasks, models.SubtaskResult{
			ID:       st.ID,
			Group:    st.Group,
			Status:   st.Status,
			Duration: st.Duration(),
			Error:    st.Error,
		})
	}

	merge := NewMergeStage(o.complete, o.cfg.MergeTokenLimit())
	outcome, mergeErr := merge.Run(ctx, plan)
	result.Merged = outcome.Text
	result.Degraded = outcome.Degraded
	result.Duration = time.Since(started)

	if mergeErr != nil {
		// Completed with unmerged results: the error propagates but the
		// per-subtask results go with it.
		result.MergeError = mergeErr.Error()
		debugLog("[orchestrator] run %s merge failed: %v", runID, mergeErr)
		return result, mergeErr
	}

	if result.Failed() {
		debugLog("[orchestrator] run %s: all subtasks failed", runID)
		return result, fmt.Errorf("all %d subtasks failed", len(result.Subtasks))
	}

	debugLog("[orchestrator] run %s complete in %s", runID, result.Duration)
	return result, nil
}

// selectRenderer starts the appropriate renderer for the plan and returns
// it, or nil when no renderer is configured. Multi-pane rendering is used
// only when some group has more than one subtask; a pane renderer that
// fails to start drops to the plain path, never aborting execution.
func (o *Orchestrator) selectRenderer(plan *models.Plan, store *BufferStore) Renderer {
	if plan.MultiPane() && o.renderer != nil {
		err := o.renderer.Start(plan, store)
		if err == nil {
			return o.renderer
		}
		debugLog("[orchestrator] pane renderer failed, using plain output: %v", err)
	}

	if o.plain == nil {
		return nil
	}
	if err := o.plain.Start(plan, store); err != nil {
		debugLog("[orchestrator] plain renderer failed, continuing unrendered: %v", err)
		return nil
	}
	return o.plain
}
