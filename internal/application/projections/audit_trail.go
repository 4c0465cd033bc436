package projections

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"cumeal/internal/adapters/storage/audit"
	"cumeal/internal/application/listutil"
	domainAudit "cumeal/internal/domain/audit"
)

// AuditTrailQuery carries the audit page filters.
type AuditTrailQuery struct {
	Category string
	Actor    string
	From     string
	To       string
	Params   listutil.Params
}

// ParseAuditTrailQuery reads the audit page filters from URL values.
// An unknown category is dropped.
func ParseAuditTrailQuery(q url.Values) AuditTrailQuery {
	query := AuditTrailQuery{
		Category: q.Get("category"),
		Actor:    strings.TrimSpace(q.Get("actor")),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Params:   listutil.Parse(q, nil, "", listutil.Desc),
	}
	if !slices.Contains(domainAudit.Categories, domainAudit.Category(query.Category)) {
		query.Category = ""
	}
	return query
}

// AuditTrailDeps holds dependencies for QueryAuditTrail.
type AuditTrailDeps struct {
	Store AuditReader
}

// AuditTrailResult is one page of the audit trail.
type AuditTrailResult struct {
	Events     []domainAudit.Event
	Page       listutil.PageInfo
	Query      AuditTrailQuery
	Categories []domainAudit.Category
}

// QueryAuditTrail lists audit events newest first, one page at a time.
// POST: Page.Total is the number of events matching the filters
func QueryAuditTrail(ctx context.Context, query AuditTrailQuery, deps AuditTrailDeps) (AuditTrailResult, error) {
	filter := query.filter()
	total, err := deps.Store.Count(ctx, filter)
	if err != nil {
		return AuditTrailResult{}, fmt.Errorf("count audit events: %w", err)
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	events, err := deps.Store.List(ctx, filter, info.PerPage, info.Offset())
	if err != nil {
		return AuditTrailResult{}, fmt.Errorf("list audit events: %w", err)
	}
	return AuditTrailResult{
		Events:     events,
		Page:       info,
		Query:      query,
		Categories: domainAudit.Categories,
	}, nil
}

func (q AuditTrailQuery) filter() audit.Filter {
	var f audit.Filter
	if q.Category != "" {
		c := domainAudit.Category(q.Category)
		f.Category = &c
	}
	if q.Actor != "" {
		f.ActorName = &q.Actor
	}
	if q.From != "" {
		f.FromDate = &q.From
	}
	if q.To != "" {
		f.ToDate = &q.To
	}
	return f
}

// PageURL is the audit page link for page, keeping the active filters.
func (r AuditTrailResult) PageURL(page int) string {
	v := r.Query.Params.Query(page)
	for key, val := range map[string]string{
		"category": r.Query.Category,
		"actor":    r.Query.Actor,
		"from":     r.Query.From,
		"to":       r.Query.To,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	return "/admin/audit?" + v.Encode()
}
