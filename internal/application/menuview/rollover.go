package menuview

import (
	"context"
	"log/slog"
	"time"

	"cumeal/internal/domain/menu"
)

// RolloverWatcher detects the local date changing and refreshes the
// Today/Tomorrow classification of every session.
type RolloverWatcher struct {
	registry *Registry
	loc      *time.Location
	now      func() time.Time
	idle     time.Duration
	// OnRollover runs after new reference dates were pushed; may be nil.
	OnRollover func(ctx context.Context, refs menu.ReferenceDates)
}

// NewRolloverWatcher watches the calendar date in loc.
// Controllers idle for longer than idle are swept on each tick.
func NewRolloverWatcher(registry *Registry, loc *time.Location, idle time.Duration) *RolloverWatcher {
	if loc == nil {
		loc = time.Local
	}
	return &RolloverWatcher{registry: registry, loc: loc, now: time.Now, idle: idle}
}

// Check compares the cached today with the live date.
// POST: returns true when reference dates were recomputed
func (w *RolloverWatcher) Check(ctx context.Context) bool {
	now := w.now().In(w.loc)
	if w.idle > 0 {
		if n := w.registry.Sweep(now, w.idle); n > 0 {
			slog.Info("menu_event", "event", "controllers_swept", "count", n)
		}
	}

	refs := menu.NewReferenceDates(now)
	old := w.registry.ReferenceDates()
	if refs.Today == old.Today {
		return false
	}
	w.registry.SetReferenceDates(refs)
	slog.Info("menu_event", "event", "date_rollover", "from", old.Today, "to", refs.Today, "sessions", w.registry.Len())
	if w.OnRollover != nil {
		w.OnRollover(ctx, refs)
	}
	return true
}

// Start runs Check every interval until stopCh is closed.
// PRE: interval > 0
// POST: the goroutine exits once stopCh is closed
func (w *RolloverWatcher) Start(interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				w.Check(ctx)
				cancel()
			case <-stopCh:
				slog.Info("rollover_watcher_stopped")
				return
			}
		}
	}()
}
