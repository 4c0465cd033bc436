package audit

import (
	"context"
	"time"

	domain "cumeal/internal/domain/audit"
)

// Store keeps the local trail of admin actions.
type Store interface {
	// Save appends an event.
	// PRE: event.ID is non-empty
	Save(ctx context.Context, event domain.Event) error

	// List returns one page of matching events, newest first.
	// PRE: limit > 0, offset >= 0
	List(ctx context.Context, filter Filter, limit, offset int) ([]domain.Event, error)

	// Count returns how many events match filter.
	Count(ctx context.Context, filter Filter) (int, error)

	// GetByID returns the event or sql.ErrNoRows.
	GetByID(ctx context.Context, id string) (domain.Event, error)

	// DeleteBefore removes events older than cutoff and reports how many went.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Filter narrows List and Count. Nil fields match everything.
// FromDate and ToDate are YYYY-MM-DD days, both inclusive.
type Filter struct {
	Category   *domain.Category
	Action     *domain.Action
	ActorName  *string
	Severity   *domain.Severity
	ResourceID *string
	FromDate   *string
	ToDate     *string
}

var _ Store = (*SQLiteStore)(nil)
