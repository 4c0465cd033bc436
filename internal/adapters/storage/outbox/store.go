package outbox

import (
	"context"

	domain "cumeal/internal/domain/outbox"
)

// Store persists queued notifications.
type Store interface {
	// Save inserts or updates an entry.
	// PRE: e.Validate() == nil
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns up to limit pending entries, oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// CountByStatus returns the number of entries in status.
	CountByStatus(ctx context.Context, status string) (int, error)
}
