// Package outbox models notification emails waiting for another delivery attempt.
package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Entry lifecycle.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// KindMenuNotification is a menu-change email for a single recipient.
const KindMenuNotification = "menu_notification"

// DefaultMaxAttempts bounds delivery attempts per entry.
const DefaultMaxAttempts = 5

var (
	ErrEmptyKind    = errors.New("outbox: kind is required")
	ErrEmptyPayload = errors.New("outbox: payload is required")
)

// Entry is one queued delivery. Payload is the JSON-encoded message.
type Entry struct {
	ID              string
	Kind            string
	Payload         string
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	LastError       string
}

// NewEntry queues payload for delivery.
// POST: Status == StatusPending, Attempts == 0
func NewEntry(kind, payload string, now time.Time) (Entry, error) {
	e := Entry{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     payload,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now.UTC(),
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Validate checks the required fields.
func (e Entry) Validate() error {
	if e.Kind == "" {
		return ErrEmptyKind
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("outbox: created_at must be set")
	}
	return nil
}

// CanRetry reports whether another attempt is allowed.
func (e Entry) CanRetry() bool {
	return e.Status == StatusPending && e.Attempts < e.MaxAttempts
}

// NextRetryDelay is base * 2^attempts, capped at max.
func (e Entry) NextRetryDelay(base, max time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return max
	}
	delay := base * time.Duration(1<<e.Attempts)
	if delay <= 0 || delay > max {
		return max
	}
	return delay
}

// Due reports whether the backoff since the last attempt has elapsed.
func (e Entry) Due(now time.Time, base, max time.Duration) bool {
	if !e.CanRetry() {
		return false
	}
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(base, max)))
}

// MarkAttempt records a delivery attempt at now.
func (e Entry) MarkAttempt(now time.Time) Entry {
	e.Attempts++
	e.LastAttemptedAt = now.UTC()
	return e
}

// MarkSent ends the entry successfully.
func (e Entry) MarkSent() Entry {
	e.Status = StatusSent
	e.LastError = ""
	return e
}

// MarkFailed records err. The entry gives up once MaxAttempts is reached.
// POST: Status == StatusFailed iff Attempts >= MaxAttempts
func (e Entry) MarkFailed(err error) Entry {
	e.LastError = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
	return e
}
