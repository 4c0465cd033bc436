package projections

import (
	"context"

	"cumeal/internal/adapters/storage/audit"
	domainAudit "cumeal/internal/domain/audit"
	"cumeal/internal/domain/feedback"
)

// FeedbackSource reads survey data from the backend.
type FeedbackSource interface {
	ListFeedback(ctx context.Context) ([]feedback.Entry, error)
	FeedbackStats(ctx context.Context) (feedback.Stats, error)
}

// AuditReader reads the local audit trail.
type AuditReader interface {
	List(ctx context.Context, filter audit.Filter, limit, offset int) ([]domainAudit.Event, error)
	Count(ctx context.Context, filter audit.Filter) (int, error)
}
