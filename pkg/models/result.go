package models

import "time"

// SubtaskResult is the per-subtask metadata returned to the caller
// once a plan finishes.
type SubtaskResult struct {
	// ID is the subtask identifier.
	ID string `json:"id"`
	// Group is the scheduling group the subtask ran in.
	Group int `json:"group"`
	// Status is the terminal status of the subtask.
	Status SubtaskStatus `json:"status"`
	// Duration is the subtask's wall time from start to terminal state.
	Duration time.Duration `json:"duration"`
	// Error contains the captured error text for failed subtasks.
	Error string `json:"error,omitempty"`
}

// PlanResult is the outcome of executing a plan: the merged text plus
// per-subtask status and duration metadata.
type PlanResult struct {
	// RunID identifies this execution.
	RunID string `json:"run_id"`
	// Merged is the synthesized final answer.
	Merged string `json:"merged"`
	// Subtasks holds per-subtask results in plan order.
	Subtasks []SubtaskResult `json:"subtasks"`
	// Degraded indicates the merge ran without some subtask inputs
	// because those subtasks failed.
	Degraded bool `json:"degraded"`
	// MergeError contains the merge failure, if any. Subtask results
	// are still populated when the merge itself fails.
	MergeError string `json:"merge_error,omitempty"`
	// Duration is the total plan wall time.
	Duration time.Duration `json:"duration"`
}

// Failed returns true if every subtask in the result failed.
func (r *PlanResult) Failed() bool {
	if len(r.Subtasks) == 0 {
		return false
	}
	for _, st := range r.Subtasks {
		if st.Status != StatusFailed {
			return false
		}
	}
	return true
}

// Contributed returns the IDs of subtasks whose output reached the merge.
func (r *PlanResult) Contributed() []string {
	var ids []string
	for _, st := range r.Subtasks {
		if st.Status == StatusComplete {
			ids = append(ids, st.ID)
		}
	}
	return ids
}
