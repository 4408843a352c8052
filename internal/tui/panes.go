// Package tui provides the terminal user interface for loom: a live
// multi-pane view of concurrent subtasks and a plain linear fallback for
// non-interactive terminals.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loom-sh/loom/internal/orchestrator"
	"github.com/loom-sh/loom/pkg/models"
)

// tickMsg drives the refresh loop.
type tickMsg time.Time

// doneMsg tells the app the plan finished and the program should exit.
type doneMsg struct{}

// DefaultRefreshRate is used when the configured refresh rate is zero.
const DefaultRefreshRate = 50 * time.Millisecond

var (
	borderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	dividerStyle = lipgloss.NewStyle().Faint(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// paneCache holds the last rendered body of one pane, keyed by the store
// revision that produced it. Panes whose revision has not moved are
// reused verbatim on the next frame.
type paneCache struct {
	rev      uint64
	status   models.SubtaskStatus
	rendered string
}

// PaneApp is the bubbletea model for the multi-pane view. It owns no
// subtask state: every frame is derived from buffer store snapshots, so
// stream speed and render speed stay decoupled.
type PaneApp struct {
	plan  *models.Plan
	store *orchestrator.BufferStore

	spin    spinner.Model
	refresh time.Duration
	cache   map[string]paneCache

	width    int
	height   int
	done     bool
	quitting bool
}

// NewPaneApp creates a pane app refreshing at the given rate.
func NewPaneApp(plan *models.Plan, store *orchestrator.BufferStore, refresh time.Duration) *PaneApp {
	if refresh <= 0 {
		refresh = DefaultRefreshRate
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &PaneApp{
		plan:    plan,
		store:   store,
		spin:    sp,
		refresh: refresh,
		cache:   make(map[string]paneCache),
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (a *PaneApp) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.tick())
}

func (a *PaneApp) tick() tea.Cmd {
	return tea.Tick(a.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (a *PaneApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// The plan keeps running; quitting only detaches the view.
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Cached panes were rendered at the old width.
		a.cache = make(map[string]paneCache)

	case tickMsg:
		if a.done {
			return a, tea.Quit
		}
		return a, a.tick()

	case doneMsg:
		a.done = true
		return a, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	return a, nil
}

// View implements tea.Model. All panes share a single outer border with
// dividers between them; nested per-pane borders waste rows and columns.
func (a *PaneApp) View() string {
	if a.quitting {
		return ""
	}

	innerWidth := a.width - 4
	if innerWidth < 20 {
		innerWidth = 20
	}

	divider := dividerStyle.Render(strings.Repeat("─", innerWidth))

	var sections []string
	for _, st := range a.plan.Subtasks {
		sections = append(sections, a.renderPane(st.ID, innerWidth))
	}

	body := strings.Join(sections, "\n"+divider+"\n")
	return borderStyle.Width(innerWidth+2).Render(body) + "\n"
}

// renderPane renders one subtask pane, reusing the cached body when the
// pane's revision has not advanced. The title line is rebuilt every frame
// so the running spinner keeps animating.
func (a *PaneApp) renderPane(id string, width int) string {
	snap, ok := a.store.Pane(id)
	if !ok {
		return ""
	}

	cached, hit := a.cache[id]
	if !hit || cached.rev != snap.Rev || cached.status != snap.Status {
		cached = paneCache{
			rev:      snap.Rev,
			status:   snap.Status,
			rendered: renderPaneBody(snap, width),
		}
		a.cache[id] = cached
	}

	title := fmt.Sprintf("%s %s", a.statusGlyph(snap.Status), titleStyle.Render(id))
	if cached.rendered == "" {
		return title
	}
	return title + "\n" + cached.rendered
}

// renderPaneBody renders the buffered lines of one pane, truncating each
// line to the pane width.
func renderPaneBody(snap orchestrator.PaneSnapshot, width int) string {
	lines := make([]string, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		lines = append(lines, truncateLine(line, width))
	}
	return dimStyle.Render(strings.Join(lines, "\n"))
}

// truncateLine cuts a line to at most width cells. Cells, not runes:
// double-width runes count for two, so CJK text cannot overflow a pane.
func truncateLine(line string, width int) string {
	if lipgloss.Width(line) <= width {
		return line
	}

	var b strings.Builder
	cells := 0
	for _, r := range line {
		w := lipgloss.Width(string(r))
		if cells+w > width-1 {
			break
		}
		b.WriteRune(r)
		cells += w
	}
	return b.String() + "…"
}

// statusGlyph returns the one-cell status indicator for a pane title.
func (a *PaneApp) statusGlyph(status models.SubtaskStatus) string {
	switch status {
	case models.StatusRunning:
		return a.spin.View()
	case models.StatusComplete:
		return okStyle.Render("✓")
	case models.StatusFailed:
		return failStyle.Render("✗")
	default:
		return dimStyle.Render("○")
	}
}

// Done returns whether the app received the completion signal.
func (a *PaneApp) Done() bool {
	return a.done
}
