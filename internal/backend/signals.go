package backend

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalWatcher observes the .loom/signals directory for an external stop
// request. The scheduler consults it only between groups: a stop never
// cancels in-flight subtasks, it just prevents the next group from starting.
type SignalWatcher struct {
	loomDir string

	mu         sync.RWMutex
	stopSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalWatcher creates a watcher rooted at workDir/.loom.
func NewSignalWatcher(workDir string) (*SignalWatcher, error) {
	loomDir := filepath.Join(workDir, ".loom")
	signalsDir := filepath.Join(loomDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sw := &SignalWatcher{
		loomDir: loomDir,
		done:    make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Polling fallback in ShouldStop still works without a watcher.
		return sw, nil
	}
	sw.watcher = watcher

	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		sw.watcher = nil
		return sw, nil
	}

	go sw.watch()

	return sw, nil
}

// watch monitors the signals directory for a stop file.
func (sw *SignalWatcher) watch() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == "stop" &&
				(event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				sw.mu.Lock()
				sw.stopSignal = true
				sw.mu.Unlock()
			}
		case <-sw.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// ShouldStop returns true if a stop signal has been received.
func (sw *SignalWatcher) ShouldStop() bool {
	// Also check the file directly in case the watcher missed it.
	stopPath := filepath.Join(sw.loomDir, "signals", "stop")
	if _, err := os.Stat(stopPath); err == nil {
		sw.mu.Lock()
		sw.stopSignal = true
		sw.mu.Unlock()
	}

	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.stopSignal
}

// SendStop creates a stop signal file.
func (sw *SignalWatcher) SendStop() error {
	path := filepath.Join(sw.loomDir, "signals", "stop")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes the stop signal file and resets state.
func (sw *SignalWatcher) Clear() {
	sw.mu.Lock()
	sw.stopSignal = false
	sw.mu.Unlock()

	os.Remove(filepath.Join(sw.loomDir, "signals", "stop"))
}

// Close stops the watcher.
func (sw *SignalWatcher) Close() {
	close(sw.done)
	if sw.watcher != nil {
		sw.watcher.Close()
	}
}
