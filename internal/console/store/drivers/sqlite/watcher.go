package sqlite

import (
	"context"
	"log/slog"
	"time"
)

// Watcher periodically polls a Scope for changes made by other consoles
// and prunes old change records.
type Watcher struct {
	Scope                *Scope
	Logger               *slog.Logger
	Interval             time.Duration
	HousekeepingInterval time.Duration
	Retention            time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a watcher for scope. A non-positive interval defaults
// to 500ms, housekeeping to 1 hour and retention to 24 hours.
func NewWatcher(scope *Scope, logger *slog.Logger, interval, housekeeping, retention time.Duration) *Watcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if housekeeping <= 0 {
		housekeeping = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	return &Watcher{
		Scope:                scope,
		Logger:               logger,
		Interval:             interval,
		HousekeepingInterval: housekeeping,
		Retention:            retention,
		stopCh:               make(chan struct{}),
		doneCh:               make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (w *Watcher) Start() {
	go w.run()
	w.Logger.Info("store watcher started", "interval", w.Interval, "retention", w.Retention)
}

// Stop blocks until the worker has finished any in-progress poll.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.Logger.Info("store watcher stopped")
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	poll := time.NewTicker(w.Interval)
	defer poll.Stop()
	housekeeping := time.NewTicker(w.HousekeepingInterval)
	defer housekeeping.Stop()

	w.cleanup()

	for {
		select {
		case <-poll.C:
			w.poll()
		case <-housekeeping.C:
			w.cleanup()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) poll() {
	n, err := w.Scope.Poll(context.Background())
	if err != nil {
		w.Logger.Error("failed to poll store changes", "error", err)
		return
	}
	if n > 0 {
		w.Logger.Debug("delivered store changes", "count", n)
	}
}

func (w *Watcher) cleanup() {
	n, err := w.Scope.store.PruneChanges(context.Background(), w.Retention)
	if err != nil {
		w.Logger.Error("failed to prune store changes", "error", err)
		return
	}
	w.Logger.Debug("pruned store changes", "deleted", n)
}
