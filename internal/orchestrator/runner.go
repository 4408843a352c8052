package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/loom-sh/loom/internal/backend"
	"github.com/loom-sh/loom/pkg/models"
)

// SubtaskRunner owns exactly one subtask for its lifetime. It pulls
// stream events from the subtask's source until a terminal event,
// accumulating raw text for the merge stage and deriving sanitized
// display lines for the render buffer store. Retry policy, if any,
// belongs to the source, never to the runner.
type SubtaskRunner struct {
	task   *models.Subtask
	source backend.Source
	store  *BufferStore

	// raw accumulates every fragment payload for the merge stage.
	raw strings.Builder
	// lineBuf accumulates fragment text until a newline completes a
	// display line.
	lineBuf strings.Builder
	// lineKind is the kind currently accumulating in lineBuf.
	lineKind backend.EventKind
}

// NewSubtaskRunner creates a runner for the given subtask.
func NewSubtaskRunner(task *models.Subtask, source backend.Source, store *BufferStore) *SubtaskRunner {
	return &SubtaskRunner{
		task:   task,
		source: source,
		store:  store,
	}
}

// Run drives the subtask to a terminal state. It returns once the source
// is exhausted; errors are recorded on the subtask rather than returned,
// since a subtask failure must not escalate to its siblings.
func (r *SubtaskRunner) Run(ctx context.Context) {
	r.task.Status = models.StatusRunning
	r.task.StartedAt = time.Now()
	r.store.SetStatus(r.task.ID, models.StatusRunning, "")
	debugLog("[runner] subtask %s running", r.task.ID)

	for event := range r.source.Events() {
		if r.task.Status.Terminal() {
			// Status transitions are monotonic: anything after the
			// terminal event is dropped.
			continue
		}

		switch event.Kind {
		case backend.EventThought:
			r.appendFragment(backend.EventThought, event.Text)
		case backend.EventAction:
			// Tool actions arrive whole, not as partial lines, and are
			// pushed as system lines that bypass sanitization.
			r.flushLine()
			r.raw.WriteString(event.Text + "\n")
			r.store.Append(r.task.ID, actionPrefix+event.Text)
		case backend.EventFinal:
			r.appendFragment(backend.EventFinal, event.Text)
		case backend.EventCompleted:
			r.finish(models.StatusComplete, "")
		case backend.EventFailed:
			errText := "stream failed"
			if event.Err != nil {
				errText = event.Err.Error()
			}
			r.finish(models.StatusFailed, errText)
		}
	}

	// A source that closes without a terminal event counts as a failure.
	if !r.task.Status.Terminal() {
		r.finish(models.StatusFailed, "stream ended without terminal event")
	}
}

// Display prefixes for derived lines.
const (
	thoughtPrefix = "· "
	actionPrefix  = "▸ "
)

// appendFragment accumulates fragment text, pushing a sanitized display
// line for each completed line. A kind change flushes the pending line so
// thought and final text never interleave within one display line.
func (r *SubtaskRunner) appendFragment(kind backend.EventKind, text string) {
	if r.lineBuf.Len() > 0 && r.lineKind != kind {
		r.flushLine()
	}
	r.lineKind = kind

	r.raw.WriteString(text)

	for {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			r.lineBuf.WriteString(text)
			return
		}
		r.lineBuf.WriteString(text[:idx])
		r.flushLine()
		r.lineKind = kind
		text = text[idx+1:]
	}
}

// flushLine pushes the pending display line, if any, into the store.
func (r *SubtaskRunner) flushLine() {
	if r.lineBuf.Len() == 0 {
		return
	}

	line := SanitizeLine(r.lineBuf.String())
	r.lineBuf.Reset()
	if line == "" {
		return
	}

	if r.lineKind == backend.EventThought {
		line = thoughtPrefix + line
	}
	r.store.Append(r.task.ID, line)
}

// finish records the terminal state on both the subtask and the store.
func (r *SubtaskRunner) finish(status models.SubtaskStatus, errText string) {
	r.flushLine()

	r.task.Status = status
	r.task.EndedAt = time.Now()
	r.task.Output = r.raw.String()
	r.task.Error = errText

	r.store.SetStatus(r.task.ID, status, errText)
	if status == models.StatusFailed && errText != "" {
		// Failed panes show the captured error as a system line.
		r.store.Append(r.task.ID, actionPrefix+"error: "+errText)
	}
	debugLog("[runner] subtask %s %s", r.task.ID, status)
}
