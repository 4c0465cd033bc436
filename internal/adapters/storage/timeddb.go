package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"cumeal/internal/adapters/http/perf"
)

// SQLDB is what the session, audit and outbox stores need from a database.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*TimedDB)(nil)
)

// DefaultSlowQueryMs is used when NewTimedDB is given a non-positive threshold.
const DefaultSlowQueryMs = 50

// TimedDB times every statement, records it as a perf.KindQuery entry and
// warns about statements slower than its threshold.
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	slowMs    float64
}

// NewTimedDB wraps db. collector may be nil.
// PRE: db is a valid database connection
func NewTimedDB(db *sql.DB, collector *perf.Collector, slowMs int) *TimedDB {
	if slowMs <= 0 {
		slowMs = DefaultSlowQueryMs
	}
	return &TimedDB{db: db, collector: collector, slowMs: float64(slowMs)}
}

// ExecContext runs a statement that returns no rows.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.db.ExecContext(ctx, query, args...)
	t.observe(query, start, err)
	return res, err
}

// QueryContext runs a statement that returns rows.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe(query, start, err)
	return rows, err
}

// QueryRowContext runs a statement expected to return at most one row.
// Errors surface at Scan, so the entry is recorded without one.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe(query, start, nil)
	return row
}

func (t *TimedDB) observe(query string, start time.Time, err error) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	label := StatementLabel(query)

	switch {
	case err != nil:
		slog.Warn("query_failed", "statement", label, "duration_ms", durationMs, "error", err.Error())
	case durationMs >= t.slowMs:
		slog.Warn("slow_query", "statement", label, "duration_ms", durationMs)
	default:
		slog.Debug("query", "statement", label, "duration_ms", durationMs)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       label,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

// StatementLabel reduces a SQL statement to "VERB table", e.g. "SELECT session",
// so perf snapshots group queries by what they touch rather than by their text.
func StatementLabel(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "EMPTY"
	}
	verb := strings.ToUpper(fields[0])
	marker := ""
	switch verb {
	case "SELECT", "DELETE":
		marker = "FROM"
	case "INSERT", "REPLACE":
		marker = "INTO"
	case "UPDATE":
		return verb + " " + tableName(fields, 1)
	default:
		return verb
	}
	for i, f := range fields {
		if strings.EqualFold(f, marker) {
			return verb + " " + tableName(fields, i+1)
		}
	}
	return verb
}

func tableName(fields []string, i int) string {
	if i >= len(fields) {
		return "?"
	}
	name := fields[i]
	if j := strings.IndexAny(name, "(,;"); j > 0 {
		name = name[:j]
	}
	return strings.Trim(name, "`\"")
}
