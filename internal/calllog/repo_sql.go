package calllog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQLRepo stores events in a call_events table through database/sql.
// It works with the pgx stdlib driver and with modernc sqlite.
type SQLRepo struct {
	db     *sql.DB
	driver string
}

func NewSQLRepo(db *sql.DB, driver string) *SQLRepo {
	return &SQLRepo{db: db, driver: driver}
}

const createTable = `CREATE TABLE IF NOT EXISTS call_events (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	call_sid      TEXT NOT NULL DEFAULT '',
	recording_sid TEXT NOT NULL DEFAULT '',
	caller        TEXT NOT NULL DEFAULT '',
	detail        TEXT NOT NULL DEFAULT '',
	created_at    BIGINT NOT NULL
)`

// Migrate creates the table if it does not exist.
func (r *SQLRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("calllog: creating table: %w", err)
	}
	return nil
}

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	q := r.rebind(`INSERT INTO call_events (id, type, call_sid, recording_sid, caller, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.CallSID, e.RecordingSID, e.Caller, e.Detail, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("calllog: inserting event: %w", err)
	}
	return nil
}

func (r *SQLRepo) List(ctx context.Context, limit int) ([]Event, error) {
	q := r.rebind(`SELECT id, type, call_sid, recording_sid, caller, detail, created_at
		FROM call_events ORDER BY created_at DESC, id DESC LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("calllog: listing events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			typ     string
			created int64
		)
		if err := rows.Scan(&e.ID, &typ, &e.CallSID, &e.RecordingSID, &e.Caller, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("calllog: scanning event: %w", err)
		}
		e.Type = EventType(typ)
		e.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLRepo) CountByType(ctx context.Context) (map[EventType]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM call_events GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("calllog: counting events: %w", err)
	}
	defer rows.Close()

	out := make(map[EventType]int)
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("calllog: scanning count: %w", err)
		}
		out[EventType(typ)] = n
	}
	return out, rows.Err()
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *SQLRepo) rebind(q string) string {
	if r.driver != "pgx" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
