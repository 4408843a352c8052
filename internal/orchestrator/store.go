package orchestrator

import (
	"sync"

	"github.com/loom-sh/loom/pkg/models"
)

// BufferStore is the shared table mapping subtask IDs to their rolling
// display buffers and statuses. Runners mutate their own entries; the
// render loop reads snapshots. Each entry has its own lock so concurrent
// subtasks never serialize on each other, only on the renderer's brief
// per-entry read.
type BufferStore struct {
	// mu guards the entries map and order slice, which are written only
	// during registration before any runner starts.
	mu      sync.RWMutex
	order   []string
	entries map[string]*paneEntry

	bufferLines int
}

// paneEntry holds the display state for one subtask.
type paneEntry struct {
	mu      sync.Mutex
	ring    *RingBuffer
	status  models.SubtaskStatus
	errText string
	// rev increments on every mutation so the renderer can skip
	// unchanged panes.
	rev uint64
}

// PaneSnapshot is a read-only projection of one entry, consumed by the
// render loop. It owns no state; producers never see it.
type PaneSnapshot struct {
	// ID is the subtask identifier.
	ID string
	// Lines are the current display buffer contents, oldest first.
	Lines []string
	// Status is the subtask status at snapshot time.
	Status models.SubtaskStatus
	// Err is the captured error text for failed subtasks.
	Err string
	// Rev is the entry's mutation counter at snapshot time.
	Rev uint64
	// Total counts every line ever appended, including evicted ones.
	Total int
}

// NewBufferStore creates a store whose rolling buffers hold bufferLines
// lines each.
func NewBufferStore(bufferLines int) *BufferStore {
	if bufferLines <= 0 {
		bufferLines = DefaultBufferLines
	}
	return &BufferStore{
		entries:     make(map[string]*paneEntry),
		bufferLines: bufferLines,
	}
}

// Register creates entries for every subtask in the plan, in plan order.
// It must be called before runners start; snapshots list panes in
// registration order.
func (s *BufferStore) Register(p *models.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range p.Subtasks {
		if _, ok := s.entries[st.ID]; ok {
			continue
		}
		s.entries[st.ID] = &paneEntry{
			ring:   NewRingBuffer(s.bufferLines),
			status: models.StatusPending,
		}
		s.order = append(s.order, st.ID)
	}
}

// entry looks up a registered entry.
func (s *BufferStore) entry(id string) *paneEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

// Append pushes a display line into the subtask's rolling buffer,
// evicting the oldest line once the buffer is at capacity.
func (s *BufferStore) Append(id, line string) {
	e := s.entry(id)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ring.Append(line)
	e.rev++
}

// SetStatus records a status transition for the subtask. errText is
// retained only for failed status.
func (s *BufferStore) SetStatus(id string, status models.SubtaskStatus, errText string) {
	e := s.entry(id)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
	if status == models.StatusFailed {
		e.errText = errText
	}
	e.rev++
}

// Snapshot returns a consistent view of every entry in registration
// order. Each entry is locked individually for the copy, so a snapshot
// never observes a half-written buffer and writers to other entries are
// not blocked.
func (s *BufferStore) Snapshot() []PaneSnapshot {
	s.mu.RLock()
	order := s.order
	s.mu.RUnlock()

	snaps := make([]PaneSnapshot, 0, len(order))
	for _, id := range order {
		e := s.entry(id)
		if e == nil {
			continue
		}

		e.mu.Lock()
		snaps = append(snaps, PaneSnapshot{
			ID:     id,
			Lines:  e.ring.Lines(),
			Status: e.status,
			Err:    e.errText,
			Rev:    e.rev,
			Total:  e.ring.Total(),
		})
		e.mu.Unlock()
	}
	return snaps
}

// Pane returns the snapshot of a single entry, with ok reporting whether
// the subtask is registered.
func (s *BufferStore) Pane(id string) (PaneSnapshot, bool) {
	e := s.entry(id)
	if e == nil {
		return PaneSnapshot{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return PaneSnapshot{
		ID:     id,
		Lines:  e.ring.Lines(),
		Status: e.status,
		Err:    e.errText,
		Rev:    e.rev,
		Total:  e.ring.Total(),
	}, true
}

// Status returns the current status of one subtask.
func (s *BufferStore) Status(id string) models.SubtaskStatus {
	e := s.entry(id)
	if e == nil {
		return models.StatusPending
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}
