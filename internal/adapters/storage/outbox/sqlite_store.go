package outbox

import (
	"context"
	"database/sql"
	"time"

	"cumeal/internal/adapters/storage"
	domain "cumeal/internal/domain/outbox"
)

// timeLayout is fixed-width so created_at sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `SELECT id, kind, payload, status, attempts, max_attempts, last_attempted_at, created_at, last_error FROM notification_outbox`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an entry (insert or update).
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	lastAttempted := ""
	if !e.LastAttemptedAt.IsZero() {
		lastAttempted = e.LastAttemptedAt.UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_outbox (id, kind, payload, status, attempts, max_attempts, last_attempted_at, created_at, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, last_error=excluded.last_error`,
		e.ID, e.Kind, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		lastAttempted, e.CreatedAt.UTC().Format(timeLayout), e.LastError)
	return err
}

// ListPending returns up to limit pending entries, oldest first.
// PRE: limit > 0
func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE status = ? ORDER BY created_at ASC LIMIT ?`, domain.StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByStatus returns the number of entries in status.
func (s *SQLiteStore) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_outbox WHERE status = ?`, status).Scan(&n)
	return n, err
}

func scanEntry(rows *sql.Rows) (domain.Entry, error) {
	var e domain.Entry
	var lastAttempted, created string
	if err := rows.Scan(&e.ID, &e.Kind, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttempted, &created, &e.LastError); err != nil {
		return domain.Entry{}, err
	}
	e.CreatedAt, _ = time.Parse(timeLayout, created)
	if lastAttempted != "" {
		e.LastAttemptedAt, _ = time.Parse(timeLayout, lastAttempted)
	}
	return e, nil
}
