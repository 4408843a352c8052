package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loom-sh/loom/internal/orchestrator"
	"github.com/loom-sh/loom/pkg/models"
)

func testPlan() (*models.Plan, *orchestrator.BufferStore) {
	plan := &models.Plan{
		Request: "r",
		Subtasks: []*models.Subtask{
			{ID: "alpha", Group: 1, Instruction: "x", Status: models.StatusPending},
			{ID: "beta", Group: 1, Instruction: "y", Status: models.StatusPending},
		},
	}
	store := orchestrator.NewBufferStore(4)
	store.Register(plan)
	return plan, store
}

func TestPaneAppViewShowsAllPanes(t *testing.T) {
	plan, store := testPlan()
	store.Append("alpha", "first line")
	store.SetStatus("beta", models.StatusRunning, "")

	app := NewPaneApp(plan, store, 50*time.Millisecond)
	view := app.View()

	if !strings.Contains(view, "alpha") || !strings.Contains(view, "beta") {
		t.Errorf("view missing pane titles:\n%s", view)
	}
	if !strings.Contains(view, "first line") {
		t.Errorf("view missing buffered line:\n%s", view)
	}
}

func TestPaneAppCachesUnchangedPanes(t *testing.T) {
	plan, store := testPlan()
	store.Append("alpha", "line one")

	app := NewPaneApp(plan, store, 50*time.Millisecond)
	app.View()

	first, ok := app.cache["alpha"]
	if !ok {
		t.Fatal("expected pane body cached after render")
	}

	// Unchanged pane: the cached body must be reused as-is.
	app.View()
	second := app.cache["alpha"]
	if second.rev != first.rev || second.rendered != first.rendered {
		t.Error("cache rebuilt without a revision change")
	}

	// Appending advances the revision, so the next frame rebuilds.
	store.Append("alpha", "line two")
	app.View()
	third := app.cache["alpha"]
	if third.rev == first.rev {
		t.Error("cache not invalidated after append")
	}
	if !strings.Contains(third.rendered, "line two") {
		t.Errorf("rebuilt pane missing new line: %q", third.rendered)
	}
}

func TestPaneAppResizeClearsCache(t *testing.T) {
	plan, store := testPlan()
	store.Append("alpha", "line")

	app := NewPaneApp(plan, store, 50*time.Millisecond)
	app.View()
	if len(app.cache) == 0 {
		t.Fatal("expected cache populated")
	}

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if len(app.cache) != 0 {
		t.Error("resize must drop cached pane bodies")
	}
}

func TestPaneAppDoneQuits(t *testing.T) {
	plan, store := testPlan()
	app := NewPaneApp(plan, store, 50*time.Millisecond)

	_, cmd := app.Update(doneMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !app.Done() {
		t.Error("done flag not set")
	}
}

func TestStatusGlyphs(t *testing.T) {
	plan, store := testPlan()
	app := NewPaneApp(plan, store, 50*time.Millisecond)

	if g := app.statusGlyph(models.StatusComplete); !strings.Contains(g, "✓") {
		t.Errorf("complete glyph: %q", g)
	}
	if g := app.statusGlyph(models.StatusFailed); !strings.Contains(g, "✗") {
		t.Errorf("failed glyph: %q", g)
	}
	if g := app.statusGlyph(models.StatusPending); !strings.Contains(g, "○") {
		t.Errorf("pending glyph: %q", g)
	}
}

func TestTruncateLine(t *testing.T) {
	tests := []struct {
		line  string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is t…"},
		// Double-width runes count as two cells, not one rune.
		{"ありがとうございます", 8, "ありが…"},
		{"日本語テキスト", 14, "日本語テキスト"},
	}

	for _, tt := range tests {
		got := truncateLine(tt.line, tt.width)
		if got != tt.want {
			t.Errorf("truncateLine(%q, %d) = %q, want %q", tt.line, tt.width, got, tt.want)
		}
		if w := lipgloss.Width(got); w > tt.width {
			t.Errorf("truncateLine(%q, %d) renders %d cells wide", tt.line, tt.width, w)
		}
	}
}
