package session

import (
	"context"
	"time"

	domain "cumeal/internal/domain/session"
)

// Store persists admin sessions.
type Store interface {
	Create(ctx context.Context, s domain.Session) error
	// Get returns domain.ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (domain.Session, error)
	Update(ctx context.Context, s domain.Session) error
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
