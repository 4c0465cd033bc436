package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cumeal/internal/adapters/email"
	domainOutbox "cumeal/internal/domain/outbox"
)

// NotificationQueue defines the outbox store interface needed for notification retries.
type NotificationQueue interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
	ListPending(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
}

// Retry backoff for queued notifications.
const (
	DefaultRetryBaseDelay = time.Minute
	DefaultRetryMaxDelay  = time.Hour
)

// queueNotifications stores one outbox entry per message.
func queueNotifications(ctx context.Context, q NotificationQueue, msgs []email.Message, now time.Time) error {
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode notification: %w", err)
		}
		e, err := domainOutbox.NewEntry(domainOutbox.KindMenuNotification, string(payload), now)
		if err != nil {
			return err
		}
		if err := q.Save(ctx, e); err != nil {
			return fmt.Errorf("queue notification: %w", err)
		}
	}
	return nil
}

// NotificationRetrier redelivers queued menu-change emails with exponential backoff.
type NotificationRetrier struct {
	Outbox    NotificationQueue
	Sender    email.Sender
	Now       func() time.Time
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Name implements BackgroundJob.
func (r NotificationRetrier) Name() string { return "notification_retry" }

// Run implements BackgroundJob.
// PRE: Outbox and Sender are set
// POST: every due entry was attempted once and saved with its new state
func (r NotificationRetrier) Run(ctx context.Context) error {
	entries, err := r.Outbox.ListPending(ctx, 100)
	if err != nil {
		return fmt.Errorf("failed to list pending notifications: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	base, max := r.BaseDelay, r.MaxDelay
	if base <= 0 {
		base = DefaultRetryBaseDelay
	}
	if max <= 0 {
		max = DefaultRetryMaxDelay
	}

	var sent, failed int
	for _, e := range entries {
		if !e.Due(now, base, max) {
			continue
		}
		e = e.MarkAttempt(now)
		if err := r.deliver(ctx, e); err != nil {
			e = e.MarkFailed(err)
			failed++
			if e.Status == domainOutbox.StatusFailed {
				slog.Error("notification_abandoned", "entry_id", e.ID, "attempts", e.Attempts, "error", err.Error())
			}
		} else {
			e = e.MarkSent()
			sent++
		}
		if err := r.Outbox.Save(ctx, e); err != nil {
			slog.Error("notification_save_failed", "entry_id", e.ID, "error", err.Error())
		}
	}
	if sent+failed > 0 {
		slog.Info("notification_retry_complete", "sent", sent, "failed", failed)
	}
	return nil
}

func (r NotificationRetrier) deliver(ctx context.Context, e domainOutbox.Entry) error {
	if e.Kind != domainOutbox.KindMenuNotification {
		return fmt.Errorf("unknown outbox kind: %s", e.Kind)
	}
	var msg email.Message
	if err := json.Unmarshal([]byte(e.Payload), &msg); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	_, err := r.Sender.Send(ctx, msg)
	return err
}
