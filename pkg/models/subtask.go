package models

import "time"

// SubtaskStatus represents the current state of a subtask.
type SubtaskStatus string

const (
	// StatusPending indicates the subtask has not started.
	StatusPending SubtaskStatus = "pending"
	// StatusRunning indicates the subtask is actively streaming.
	StatusRunning SubtaskStatus = "running"
	// StatusComplete indicates the subtask finished successfully.
	StatusComplete SubtaskStatus = "complete"
	// StatusFailed indicates the subtask terminated with an error.
	StatusFailed SubtaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s SubtaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusComplete, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
func (s SubtaskStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Subtask represents one unit of planned work, executed by a single
// runner against a single backend stream.
type Subtask struct {
	// ID is the unique identifier for this subtask within its plan.
	ID string `yaml:"id" json:"id"`
	// Group is the scheduling group number. Subtasks sharing a group run
	// concurrently; groups run in ascending numeric order.
	Group int `yaml:"group" json:"group"`
	// Instruction is the prompt text given to the backend.
	Instruction string `yaml:"instruction" json:"instruction"`
	// Engine selects the backend model/tooling for this subtask.
	Engine string `yaml:"engine,omitempty" json:"engine,omitempty"`
	// Status is the current state of the subtask.
	Status SubtaskStatus `yaml:"-" json:"status"`
	// Output accumulates the raw streamed text, retained for the merge stage.
	Output string `yaml:"-" json:"output,omitempty"`
	// StartedAt is when the subtask entered the running state.
	StartedAt time.Time `yaml:"-" json:"started_at,omitempty"`
	// EndedAt is when the subtask reached a terminal state.
	EndedAt time.Time `yaml:"-" json:"ended_at,omitempty"`
	// Error contains the captured error text if the subtask failed.
	Error string `yaml:"-" json:"error,omitempty"`
}

// Duration returns the wall time between start and end.
// Returns zero until the subtask is terminal.
func (s *Subtask) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
