package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loom-sh/loom/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func savedResult() (*models.PlanResult, *models.Plan) {
	plan := &models.Plan{
		Request: "do the thing",
		Subtasks: []*models.Subtask{
			{ID: "a", Group: 1, Instruction: "first", Status: models.StatusComplete, Output: "out a"},
			{ID: "b", Group: 2, Instruction: "second", Status: models.StatusFailed, Error: "boom"},
		},
	}
	result := &models.PlanResult{
		RunID:    "run12345",
		Merged:   "merged text",
		Degraded: true,
		Duration: 3 * time.Second,
	}
	return result, plan
}

func TestSaveAndGetRun(t *testing.T) {
	db := setupTestDB(t)
	result, plan := savedResult()
	started := time.Now().Add(-time.Minute)

	if err := db.SaveRun(result, plan, started); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	run, err := db.GetRun("run12345")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run == nil {
		t.Fatal("expected run, got nil")
	}
	if run.Request != "do the thing" {
		t.Errorf("Request = %q", run.Request)
	}
	if run.Merged != "merged text" {
		t.Errorf("Merged = %q", run.Merged)
	}
	if !run.Degraded {
		t.Error("Degraded not persisted")
	}
	if run.Duration != 3*time.Second {
		t.Errorf("Duration = %v", run.Duration)
	}
}

func TestGetRunMissing(t *testing.T) {
	db := setupTestDB(t)

	run, err := db.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil for missing run, got %+v", run)
	}
}

func TestGetTranscripts(t *testing.T) {
	db := setupTestDB(t)
	result, plan := savedResult()

	if err := db.SaveRun(result, plan, time.Now()); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	transcripts, err := db.GetTranscripts("run12345")
	if err != nil {
		t.Fatalf("GetTranscripts failed: %v", err)
	}
	if len(transcripts) != 2 {
		t.Fatalf("expected 2 transcripts, got %d", len(transcripts))
	}

	// Ordered by group.
	if transcripts[0].SubtaskID != "a" || transcripts[1].SubtaskID != "b" {
		t.Errorf("unexpected order: %s, %s", transcripts[0].SubtaskID, transcripts[1].SubtaskID)
	}
	if transcripts[0].Output != "out a" {
		t.Errorf("Output = %q", transcripts[0].Output)
	}
	if transcripts[1].Status != models.StatusFailed || transcripts[1].Error != "boom" {
		t.Errorf("failure not persisted: %s %q", transcripts[1].Status, transcripts[1].Error)
	}
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)

	for i, id := range []string{"run-old", "run-new"} {
		result, plan := savedResult()
		result.RunID = id
		started := time.Now().Add(time.Duration(i) * time.Hour)
		if err := db.SaveRun(result, plan, started); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-new" {
		t.Errorf("expected newest first, got %s", runs[0].ID)
	}
}

func TestPurgeOldRuns(t *testing.T) {
	db := setupTestDB(t)

	result, plan := savedResult()
	if err := db.SaveRun(result, plan, time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	n, err := db.PurgeOldRuns(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldRuns failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged run, got %d", n)
	}

	// Transcripts cascade with the run.
	transcripts, err := db.GetTranscripts("run12345")
	if err != nil {
		t.Fatalf("GetTranscripts failed: %v", err)
	}
	if len(transcripts) != 0 {
		t.Errorf("expected cascaded delete, got %d transcripts", len(transcripts))
	}
}
