package models

import (
	"testing"
	"time"
)

func TestSubtaskStatusValid(t *testing.T) {
	valid := []SubtaskStatus{StatusPending, StatusRunning, StatusComplete, StatusFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if SubtaskStatus("cancelled").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestSubtaskStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusRunning.Terminal() {
		t.Error("pending/running must not be terminal")
	}
	if !StatusComplete.Terminal() || !StatusFailed.Terminal() {
		t.Error("complete/failed must be terminal")
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    *Plan
		wantErr bool
	}{
		{
			name: "valid plan",
			plan: &Plan{Subtasks: []*Subtask{
				{ID: "a", Group: 1, Instruction: "do a"},
				{ID: "b", Group: 2, Instruction: "do b"},
			}},
		},
		{
			name:    "empty plan",
			plan:    &Plan{},
			wantErr: true,
		},
		{
			name: "duplicate id",
			plan: &Plan{Subtasks: []*Subtask{
				{ID: "a", Group: 1, Instruction: "x"},
				{ID: "a", Group: 2, Instruction: "y"},
			}},
			wantErr: true,
		},
		{
			name: "non-positive group",
			plan: &Plan{Subtasks: []*Subtask{
				{ID: "a", Group: 0, Instruction: "x"},
			}},
			wantErr: true,
		},
		{
			name: "empty instruction",
			plan: &Plan{Subtasks: []*Subtask{
				{ID: "a", Group: 1},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlanGroupsSorted(t *testing.T) {
	plan := &Plan{Subtasks: []*Subtask{
		{ID: "c", Group: 7, Instruction: "x"},
		{ID: "a", Group: 2, Instruction: "x"},
		{ID: "b", Group: 7, Instruction: "x"},
		{ID: "d", Group: 4, Instruction: "x"},
	}}

	groups := plan.Groups()
	want := []int{2, 4, 7}
	if len(groups) != len(want) {
		t.Fatalf("expected %d groups, got %d", len(want), len(groups))
	}
	for i, g := range want {
		if groups[i] != g {
			t.Errorf("group[%d] = %d, want %d", i, groups[i], g)
		}
	}
}

func TestPlanGroupSubtasks(t *testing.T) {
	plan := &Plan{Subtasks: []*Subtask{
		{ID: "a", Group: 1, Instruction: "x"},
		{ID: "b", Group: 2, Instruction: "x"},
		{ID: "c", Group: 1, Instruction: "x"},
	}}

	group1 := plan.GroupSubtasks(1)
	if len(group1) != 2 {
		t.Fatalf("expected 2 subtasks in group 1, got %d", len(group1))
	}
	if group1[0].ID != "a" || group1[1].ID != "c" {
		t.Errorf("expected plan order [a c], got [%s %s]", group1[0].ID, group1[1].ID)
	}
}

func TestPlanMultiPane(t *testing.T) {
	single := &Plan{Subtasks: []*Subtask{
		{ID: "a", Group: 1, Instruction: "x"},
		{ID: "b", Group: 2, Instruction: "x"},
	}}
	if single.MultiPane() {
		t.Error("plan with single-subtask groups should not be multi-pane")
	}

	multi := &Plan{Subtasks: []*Subtask{
		{ID: "a", Group: 1, Instruction: "x"},
		{ID: "b", Group: 1, Instruction: "x"},
	}}
	if !multi.MultiPane() {
		t.Error("plan with a two-subtask group should be multi-pane")
	}
}

func TestSubtaskDuration(t *testing.T) {
	st := &Subtask{ID: "a"}
	if st.Duration() != 0 {
		t.Error("expected zero duration before start")
	}

	st.StartedAt = time.Now()
	if st.Duration() != 0 {
		t.Error("expected zero duration before end")
	}

	st.EndedAt = st.StartedAt.Add(3 * time.Second)
	if st.Duration() != 3*time.Second {
		t.Errorf("expected 3s, got %v", st.Duration())
	}
}

func TestPlanResultFailed(t *testing.T) {
	allFailed := &PlanResult{Subtasks: []SubtaskResult{
		{ID: "a", Status: StatusFailed},
		{ID: "b", Status: StatusFailed},
	}}
	if !allFailed.Failed() {
		t.Error("expected all-failed result to report failure")
	}

	mixed := &PlanResult{Subtasks: []SubtaskResult{
		{ID: "a", Status: StatusFailed},
		{ID: "b", Status: StatusComplete},
	}}
	if mixed.Failed() {
		t.Error("mixed result must not report overall failure")
	}
	contributed := mixed.Contributed()
	if len(contributed) != 1 || contributed[0] != "b" {
		t.Errorf("expected contributed [b], got %v", contributed)
	}
}
