package audit

import (
	"context"
	"database/sql"
	"time"

	"cumeal/internal/adapters/storage"
	domain "cumeal/internal/domain/audit"
)

// timeLayout is fixed-width so lexical order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `SELECT id, timestamp, category, action, severity, actor_id, actor_name, resource_id, resource_type, description, ip_address, user_agent, metadata FROM audit_event`

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
// PRE: event.ID is non-empty
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, event domain.Event) error {
	severity := event.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (id, timestamp, category, action, severity, actor_id, actor_name, resource_id, resource_type, description, ip_address, user_agent, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC().Format(timeLayout), string(event.Category), string(event.Action),
		string(severity), event.ActorID, event.ActorName,
		event.ResourceID, event.ResourceType, event.Description, event.IPAddress, event.UserAgent, event.Metadata)
	return err
}

// List returns audit events with optional filtering.
// PRE: limit > 0, offset >= 0
// POST: Returns events ordered by timestamp desc
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit, offset int) ([]domain.Event, error) {
	where, args := filter.clause()
	query := selectColumns + where + " ORDER BY timestamp DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Count returns how many events match filter.
func (s *SQLiteStore) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := filter.clause()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_event`+where, args...).Scan(&n)
	return n, err
}

// DeleteBefore removes events older than cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_event WHERE timestamp < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// GetByID retrieves a specific audit event.
// PRE: id is non-empty
// POST: Returns the event or sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	return scanEvent(row)
}

// clause renders the WHERE part of a query for f.
// Date bounds are YYYY-MM-DD; ToDate is inclusive of the whole day.
func (f Filter) clause() (string, []any) {
	where := " WHERE 1=1"
	args := []any{}

	if f.Category != nil {
		where += " AND category = ?"
		args = append(args, string(*f.Category))
	}
	if f.Action != nil {
		where += " AND action = ?"
		args = append(args, string(*f.Action))
	}
	if f.ActorName != nil {
		where += " AND actor_name = ?"
		args = append(args, *f.ActorName)
	}
	if f.Severity != nil {
		where += " AND severity = ?"
		args = append(args, string(*f.Severity))
	}
	if f.ResourceID != nil {
		where += " AND resource_id = ?"
		args = append(args, *f.ResourceID)
	}
	if f.FromDate != nil {
		where += " AND timestamp >= ?"
		args = append(args, *f.FromDate)
	}
	if f.ToDate != nil {
		where += " AND timestamp < ?"
		args = append(args, *f.ToDate+"T99")
	}
	return where, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (domain.Event, error) {
	var e domain.Event
	var timestamp string
	err := sc.Scan(&e.ID, &timestamp, &e.Category, &e.Action, &e.Severity, &e.ActorID, &e.ActorName, &e.ResourceID, &e.ResourceType, &e.Description, &e.IPAddress, &e.UserAgent, &e.Metadata)
	if err != nil {
		return domain.Event{}, err
	}
	e.Timestamp, _ = time.Parse(timeLayout, timestamp)
	return e, nil
}

// scanEvent scans a single row into an Event.
func scanEvent(row *sql.Row) (domain.Event, error) {
	return scanInto(row)
}

// scanEvents scans multiple rows into a slice of Events.
func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
