// Package watch provides the polling inbox watcher. Surfaces poll the inbox
// key on a fixed interval and surface the pending count; draining stays an
// explicit user action so nothing mutates while the user is mid-edit.
package watch

import (
	"context"
	"sync"
	"time"

	"shoplist-core/internal/inbox"
	"shoplist-core/internal/logging"
)

// DefaultInterval matches the manager surface's original 2s poll.
const DefaultInterval = 2 * time.Second

// CountFunc receives the pending inbox count whenever it changes.
type CountFunc func(count int)

// Watcher polls the inbox and notifies on count changes. Its lifetime is
// tied to the surface context: cancel the context or call Stop.
type Watcher struct {
	inbox    *inbox.Inbox
	interval time.Duration
	onChange CountFunc

	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	last      int
	primed    bool
}

// NewWatcher creates a Watcher. A zero interval uses DefaultInterval.
func NewWatcher(in *inbox.Inbox, interval time.Duration, onChange CountFunc) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		inbox:    in,
		interval: interval,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the polling loop.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx)

	logging.Info("Inbox watcher started", map[string]interface{}{
		"interval_ms": w.interval.Milliseconds(),
	})
}

// Stop stops the polling loop and waits for it to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()

	logging.Info("Inbox watcher stopped")
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Prime immediately so the affordance is right at startup.
	w.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check polls the inbox once and fires the callback when the count changed
// since the previous check.
func (w *Watcher) Check(ctx context.Context) {
	count, err := w.inbox.Count(ctx)
	if err != nil {
		logging.Error("Inbox poll failed", err)
		return
	}

	w.mu.Lock()
	changed := !w.primed || count != w.last
	w.last = count
	w.primed = true
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(count)
	}
}

// Pending returns the count observed by the most recent check.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// IsRunning reports whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}
