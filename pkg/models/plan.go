package models

import (
	"fmt"
	"sort"
)

// Plan is an ordered set of subtasks partitioned into scheduling groups.
// Group numbers need not be contiguous; iteration order is by sorted
// numeric value.
type Plan struct {
	// Request is the original user request the plan was produced from.
	Request string `yaml:"request,omitempty"`
	// Subtasks lists every subtask in the plan.
	Subtasks []*Subtask `yaml:"subtasks"`
}

// Validate checks plan structural invariants: at least one subtask,
// unique IDs, and positive group numbers.
func (p *Plan) Validate() error {
	if len(p.Subtasks) == 0 {
		return fmt.Errorf("plan has no subtasks")
	}

	seen := make(map[string]bool, len(p.Subtasks))
	for _, st := range p.Subtasks {
		if st.ID == "" {
			return fmt.Errorf("subtask with empty id")
		}
		if seen[st.ID] {
			return fmt.Errorf("duplicate subtask id %q", st.ID)
		}
		seen[st.ID] = true

		if st.Group <= 0 {
			return fmt.Errorf("subtask %q has non-positive group %d", st.ID, st.Group)
		}
		if st.Instruction == "" {
			return fmt.Errorf("subtask %q has empty instruction", st.ID)
		}
	}
	return nil
}

// Groups returns the distinct group numbers in ascending order.
func (p *Plan) Groups() []int {
	seen := make(map[int]bool)
	var groups []int
	for _, st := range p.Subtasks {
		if !seen[st.Group] {
			seen[st.Group] = true
			groups = append(groups, st.Group)
		}
	}
	sort.Ints(groups)
	return groups
}

// GroupSubtasks returns the subtasks belonging to the given group,
// in plan order.
func (p *Plan) GroupSubtasks(group int) []*Subtask {
	var tasks []*Subtask
	for _, st := range p.Subtasks {
		if st.Group == group {
			tasks = append(tasks, st)
		}
	}
	return tasks
}

// MultiPane reports whether any group contains more than one subtask.
// Plans where every group is a single subtask run through the plain
// linear output path with no pane layout.
func (p *Plan) MultiPane() bool {
	counts := make(map[int]int)
	for _, st := range p.Subtasks {
		counts[st.Group]++
		if counts[st.Group] > 1 {
			return true
		}
	}
	return false
}

// Get returns the subtask with the given ID, or nil.
func (p *Plan) Get(id string) *Subtask {
	for _, st := range p.Subtasks {
		if st.ID == id {
			return st
		}
	}
	return nil
}
