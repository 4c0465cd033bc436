package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BackgroundJob is periodic maintenance run by StartBackgroundWorker.
type BackgroundJob interface {
	Name() string
	Run(ctx context.Context) error
}

// ExpiredSessionStore defines the store interface needed by the session sweeper.
type ExpiredSessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// SessionSweeper deletes local sessions past their lifetime.
type SessionSweeper struct {
	Sessions ExpiredSessionStore
	Now      func() time.Time
}

// Name implements BackgroundJob.
func (s SessionSweeper) Name() string { return "session_sweep" }

// Run implements BackgroundJob.
// POST: sessions older than session.Lifetime are gone
func (s SessionSweeper) Run(ctx context.Context) error {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	n, err := s.Sessions.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	if n > 0 {
		slog.Info("auth_event", "event", "sessions_swept", "count", n)
	}
	return nil
}

// AuditPruneStore defines the store interface needed by the audit pruner.
type AuditPruneStore interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// AuditPruner drops audit events older than Retention.
type AuditPruner struct {
	Audit     AuditPruneStore
	Retention time.Duration
	Now       func() time.Time
}

// Name implements BackgroundJob.
func (p AuditPruner) Name() string { return "audit_prune" }

// Run implements BackgroundJob. A non-positive Retention keeps everything.
func (p AuditPruner) Run(ctx context.Context) error {
	if p.Retention <= 0 {
		return nil
	}
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	cutoff := now.Add(-p.Retention)
	n, err := p.Audit.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune audit trail: %w", err)
	}
	if n > 0 {
		slog.Info("audit_event", "event", "audit_pruned", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}

// StartBackgroundWorker runs job every interval until stopCh is closed.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func StartBackgroundWorker(job BackgroundJob, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := job.Run(ctx); err != nil {
					slog.Error("background_job_failed", "job", job.Name(), "error", err.Error())
				}
				cancel()
			case <-stopCh:
				slog.Info("background_worker_stopped", "job", job.Name())
				return
			}
		}
	}()
}
