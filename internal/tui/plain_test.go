package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/loom-sh/loom/pkg/models"
)

func TestPlainRendererPrintsNewLines(t *testing.T) {
	plan, store := testPlan()

	var buf bytes.Buffer
	r := NewPlainRendererTo(&buf, time.Hour) // flush manually
	if err := r.Start(plan, store); err != nil {
		t.Fatal(err)
	}

	store.SetStatus("alpha", models.StatusRunning, "")
	store.Append("alpha", "working on it")
	r.flush()

	out := buf.String()
	if !strings.Contains(out, "alpha started") {
		t.Errorf("missing status transition line: %q", out)
	}
	if !strings.Contains(out, "[alpha]") || !strings.Contains(out, "working on it") {
		t.Errorf("missing output line: %q", out)
	}

	// A second flush with no new lines prints nothing further.
	before := buf.Len()
	r.flush()
	if buf.Len() != before {
		t.Errorf("flush printed duplicate lines: %q", buf.String()[before:])
	}

	r.Stop()
}

func TestPlainRendererStatusTransitions(t *testing.T) {
	plan, store := testPlan()

	var buf bytes.Buffer
	r := NewPlainRendererTo(&buf, time.Hour)
	if err := r.Start(plan, store); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	store.SetStatus("alpha", models.StatusComplete, "")
	store.SetStatus("beta", models.StatusFailed, "stream reset")
	r.flush()

	out := buf.String()
	if !strings.Contains(out, "alpha complete") {
		t.Errorf("missing completion line: %q", out)
	}
	if !strings.Contains(out, "beta failed: stream reset") {
		t.Errorf("missing failure line: %q", out)
	}
}

func TestPlainRendererStopDrains(t *testing.T) {
	plan, store := testPlan()

	var buf bytes.Buffer
	r := NewPlainRendererTo(&buf, time.Hour)
	if err := r.Start(plan, store); err != nil {
		t.Fatal(err)
	}

	store.Append("alpha", "last words")
	r.Stop()

	if !strings.Contains(buf.String(), "last words") {
		t.Errorf("Stop did not drain pending lines: %q", buf.String())
	}
}

func TestPlainRendererSkipsEvictedLines(t *testing.T) {
	plan, store := testPlan()

	var buf bytes.Buffer
	r := NewPlainRendererTo(&buf, time.Hour)
	if err := r.Start(plan, store); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	// Buffer capacity is 4; ten appends between flushes evict six lines.
	for i := 0; i < 10; i++ {
		store.Append("alpha", "line")
	}
	r.flush()

	if n := strings.Count(buf.String(), "[alpha]"); n != 4 {
		t.Errorf("expected only surviving lines printed, got %d", n)
	}

	store.Append("alpha", "fresh")
	r.flush()
	if !strings.Contains(buf.String(), "fresh") {
		t.Error("later lines must still print after an eviction gap")
	}
}
