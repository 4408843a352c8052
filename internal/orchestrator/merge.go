package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/loom-sh/loom/pkg/models"
)

// CompleteFunc performs a single blocking backend call with an output
// token cap. It matches backend.Client.Complete.
type CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)

// MergeOutcome is what the merge stage produced, including which subtasks
// contributed so callers can tell a degraded merge from a full one.
type MergeOutcome struct {
	// Text is the synthesized answer.
	Text string
	// Contributed lists subtask IDs whose output reached the synthesis.
	Contributed []string
	// Failed lists subtask IDs excluded because they failed.
	Failed []string
	// Degraded is true when at least one subtask input was missing.
	Degraded bool
}

// MergeStage synthesizes all subtask outputs into one final answer via a
// single backend call. It is invoked once per plan, after the last group,
// regardless of individual subtask failures.
type MergeStage struct {
	complete CompleteFunc
	// tokenLimit is the resolved output cap for the merge call. The
	// caller resolves it through the configured precedence chain
	// (explicit limit, then preset, then hard fallback) before
	// constructing the stage.
	tokenLimit int
}

// NewMergeStage creates a merge stage calling the backend through
// complete, capped at tokenLimit output tokens.
func NewMergeStage(complete CompleteFunc, tokenLimit int) *MergeStage {
	return &MergeStage{
		complete:   complete,
		tokenLimit: tokenLimit,
	}
}

const mergeSystemPrompt = `You are synthesizing the results of several subtasks that were executed in parallel as parts of one user request. Combine their outputs into a single coherent answer. Do not mention the subtask mechanics; answer the original request directly.`

// Run merges the plan's subtask outputs. When every subtask failed, the
// merge still runs but degrades to a failure summary without a backend
// call. A backend failure or empty synthesis is returned as an error;
// the outcome still carries the contribution metadata gathered so far.
func (m *MergeStage) Run(ctx context.Context, plan *models.Plan) (*MergeOutcome, error) {
	outcome := &MergeOutcome{}

	var sections []string
	for _, st := range plan.Subtasks {
		switch st.Status {
		case models.StatusComplete:
			outcome.Contributed = append(outcome.Contributed, st.ID)
			sections = append(sections, fmt.Sprintf("## Subtask %s\nInstruction: %s\n\n%s", st.ID, st.Instruction, st.Output))
		default:
			outcome.Failed = append(outcome.Failed, st.ID)
			outcome.Degraded = true
		}
	}

	if len(outcome.Contributed) == 0 {
		// Fully degraded: nothing to synthesize, report rather than crash.
		var b strings.Builder
		b.WriteString("All subtasks failed; no output to merge.\n")
		for _, st := range plan.Subtasks {
			if st.Error != "" {
				fmt.Fprintf(&b, "- %s: %s\n", st.ID, st.Error)
			} else {
				fmt.Fprintf(&b, "- %s: failed\n", st.ID)
			}
		}
		outcome.Text = b.String()
		return outcome, nil
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Original request: %s\n\n", plan.Request)
	if outcome.Degraded {
		fmt.Fprintf(&prompt, "Note: subtasks %s failed and their output is missing; synthesize from what is available.\n\n", strings.Join(outcome.Failed, ", "))
	}
	prompt.WriteString(strings.Join(sections, "\n\n"))

	text, err := m.complete(ctx, mergeSystemPrompt, prompt.String(), m.tokenLimit)
	if err != nil {
		return outcome, fmt.Errorf("merge call failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return outcome, fmt.Errorf("merge returned empty result")
	}

	outcome.Text = text
	return outcome, nil
}
