package orchestrator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/loom-sh/loom/pkg/models"
)

func twoTaskPlan() *models.Plan {
	return &models.Plan{Subtasks: []*models.Subtask{
		{ID: "a", Group: 1, Instruction: "x"},
		{ID: "b", Group: 1, Instruction: "y"},
	}}
}

func TestBufferStoreRegisterAndSnapshot(t *testing.T) {
	store := NewBufferStore(4)
	store.Register(twoTaskPlan())

	snaps := store.Snapshot()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 panes, got %d", len(snaps))
	}
	if snaps[0].ID != "a" || snaps[1].ID != "b" {
		t.Errorf("expected plan order [a b], got [%s %s]", snaps[0].ID, snaps[1].ID)
	}
	for _, s := range snaps {
		if s.Status != models.StatusPending {
			t.Errorf("pane %s: expected pending, got %s", s.ID, s.Status)
		}
	}
}

func TestBufferStoreAppendAndStatus(t *testing.T) {
	store := NewBufferStore(4)
	store.Register(twoTaskPlan())

	store.Append("a", "hello")
	store.SetStatus("a", models.StatusRunning, "")
	store.SetStatus("b", models.StatusFailed, "boom")

	snaps := store.Snapshot()
	if len(snaps[0].Lines) != 1 || snaps[0].Lines[0] != "hello" {
		t.Errorf("unexpected lines for a: %v", snaps[0].Lines)
	}
	if snaps[0].Status != models.StatusRunning {
		t.Errorf("expected a running, got %s", snaps[0].Status)
	}
	if snaps[1].Status != models.StatusFailed || snaps[1].Err != "boom" {
		t.Errorf("expected b failed with error, got %s %q", snaps[1].Status, snaps[1].Err)
	}
}

func TestBufferStoreUnknownIDIgnored(t *testing.T) {
	store := NewBufferStore(4)
	store.Register(twoTaskPlan())

	store.Append("nope", "line")
	store.SetStatus("nope", models.StatusComplete, "")

	if got := store.Status("nope"); got != models.StatusPending {
		t.Errorf("expected pending for unknown id, got %s", got)
	}
}

func TestBufferStoreRevisionAdvances(t *testing.T) {
	store := NewBufferStore(4)
	store.Register(twoTaskPlan())

	before := store.Snapshot()[0].Rev
	store.Append("a", "one")
	after := store.Snapshot()[0].Rev

	if after <= before {
		t.Errorf("expected revision to advance, got %d -> %d", before, after)
	}

	// Mutating a must not touch b's revision.
	bBefore := store.Snapshot()[1].Rev
	store.Append("a", "two")
	bAfter := store.Snapshot()[1].Rev
	if bBefore != bAfter {
		t.Errorf("pane b revision changed by pane a mutation: %d -> %d", bBefore, bAfter)
	}
}

func TestBufferStoreRollingEviction(t *testing.T) {
	store := NewBufferStore(3)
	store.Register(twoTaskPlan())

	for i := 1; i <= 5; i++ {
		store.Append("a", fmt.Sprintf("line-%d", i))
	}

	lines := store.Snapshot()[0].Lines
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "line-3" || lines[2] != "line-5" {
		t.Errorf("expected FIFO eviction, got %v", lines)
	}
}

// TestBufferStoreConcurrentWriters exercises per-key synchronization:
// concurrent writers to different keys plus a snapshotting reader.
// Run with -race.
func TestBufferStoreConcurrentWriters(t *testing.T) {
	plan := &models.Plan{}
	for i := 0; i < 8; i++ {
		plan.Subtasks = append(plan.Subtasks, &models.Subtask{
			ID: fmt.Sprintf("task-%d", i), Group: 1, Instruction: "x",
		})
	}

	store := NewBufferStore(8)
	store.Register(plan)

	var wg sync.WaitGroup
	for _, st := range plan.Subtasks {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			store.SetStatus(id, models.StatusRunning, "")
			for i := 0; i < 200; i++ {
				store.Append(id, fmt.Sprintf("%s line %d", id, i))
			}
			store.SetStatus(id, models.StatusComplete, "")
		}(st.ID)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			for _, snap := range store.Snapshot() {
				if len(snap.Lines) > 8 {
					t.Errorf("pane %s exceeds capacity: %d lines", snap.ID, len(snap.Lines))
					return
				}
			}
		}
	}()

	wg.Wait()
	<-done

	for _, snap := range store.Snapshot() {
		if snap.Status != models.StatusComplete {
			t.Errorf("pane %s: expected complete, got %s", snap.ID, snap.Status)
		}
	}
}
