package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/lichhen/internal/domain/model"
	"github.com/okian/lichhen/internal/domain/reminder"
	"github.com/okian/lichhen/pkg/metrics"
)

// Driver names accepted by Open and NewSQLStore.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = time.Hour
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id               TEXT PRIMARY KEY,
		owner_id         BIGINT NOT NULL,
		name             TEXT NOT NULL,
		start_at         BIGINT NOT NULL,
		end_at           BIGINT,
		location         TEXT,
		reminder_minutes INTEGER,
		reminder_sent    BOOLEAN NOT NULL DEFAULT FALSE,
		reminder_sent_at BIGINT,
		created_at       BIGINT NOT NULL,
		updated_at       BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_owner ON events (owner_id, start_at)`,
	`CREATE INDEX IF NOT EXISTS idx_events_pending ON events (reminder_sent, start_at)`,
}

const eventColumns = `id, owner_id, name, start_at, end_at, location, reminder_minutes,
	reminder_sent, reminder_sent_at, created_at, updated_at`

// SQLStore persists events through database/sql. Times are stored as unix
// seconds and returned in the configured location.
type SQLStore struct {
	db     *sql.DB
	driver string
	cfg    settings
}

// Open returns the store for driver. The memory driver ignores dsn.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	if driver == DriverMemory || driver == "" {
		return NewMemoryStore(opts...), nil
	}
	return NewSQLStore(ctx, driver, dsn, opts...)
}

// NewSQLStore opens dsn with driver, verifies the connection and applies
// the schema.
func NewSQLStore(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one connection keeps ":memory:" databases alive and serializes writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxLifetime(connMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver, cfg: newSettings(opts)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.UpdateEventsStored(s.Count(ctx))
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrate, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Create(ctx context.Context, e model.Event) (model.Event, error) {
	defer observe("create", time.Now())
	if err := e.Validate(); err != nil {
		return model.Event{}, err
	}
	now := s.cfg.now()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	q := s.rebind(`INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, s.args(e)...); err != nil {
		return model.Event{}, s.fail("create", err)
	}
	metrics.RecordEventCreated()
	metrics.UpdateEventsStored(s.Count(ctx))
	return s.inZone(e), nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (model.Event, error) {
	defer observe("get", time.Now())
	return s.get(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) get(ctx context.Context, q queryer, id string) (model.Event, error) {
	row := q.QueryRowContext(ctx, s.rebind(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id)
	e, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.Event{}, s.fail("get", err)
	}
	return e, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, p model.Patch) (model.Event, error) {
	defer observe("update", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Event{}, s.fail("update", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := s.get(ctx, tx, id)
	if err != nil {
		return model.Event{}, err
	}
	out := cur.Apply(p)
	if err := out.Validate(); err != nil {
		return model.Event{}, err
	}
	out.UpdatedAt = s.cfg.now()

	q := s.rebind(`UPDATE events SET name = ?, start_at = ?, end_at = ?, location = ?,
		reminder_minutes = ?, reminder_sent = ?, reminder_sent_at = ?, updated_at = ? WHERE id = ?`)
	args := s.args(out)
	if _, err := tx.ExecContext(ctx, q, args[2], args[3], args[4], args[5], args[6], args[7], args[8], args[10], id); err != nil {
		return model.Event{}, s.fail("update", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Event{}, s.fail("update", err)
	}
	return s.inZone(out), nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	defer observe("delete", time.Now())
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM events WHERE id = ?`), id)
	if err != nil {
		return s.fail("delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	metrics.RecordEventDeleted()
	metrics.UpdateEventsStored(s.Count(ctx))
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]model.Event, error) {
	defer observe("list", time.Now())
	return s.query(ctx, "list", `SELECT `+eventColumns+` FROM events ORDER BY start_at, id`)
}

func (s *SQLStore) ListByOwner(ctx context.Context, ownerID int64) ([]model.Event, error) {
	defer observe("list_by_owner", time.Now())
	return s.query(ctx, "list_by_owner",
		`SELECT `+eventColumns+` FROM events WHERE owner_id = ? ORDER BY start_at, id`, ownerID)
}

// DueReminders narrows the candidates in SQL and applies the due rule in Go,
// since the effective offset depends on the configured default.
func (s *SQLStore) DueReminders(ctx context.Context, now time.Time, defaultMinutes int) ([]model.Event, error) {
	defer observe("due_reminders", time.Now())
	pending, err := s.query(ctx, "due_reminders",
		`SELECT `+eventColumns+` FROM events WHERE reminder_sent = ? ORDER BY start_at, id`, false)
	if err != nil {
		return nil, err
	}
	due := pending[:0]
	for _, e := range pending {
		if reminder.IsDue(e, defaultMinutes, now) {
			due = append(due, e)
		}
	}
	return due, nil
}

// MarkReminderSent only touches the row while it still has the start and
// offset j was built from.
func (s *SQLStore) MarkReminderSent(ctx context.Context, j reminder.Job, at time.Time) error { //nolint:gocritic // hugeParam: jobs travel by value
	defer observe("mark_sent", time.Now())
	var explicit sql.NullInt64
	if j.Explicit != nil {
		explicit = sql.NullInt64{Int64: int64(*j.Explicit), Valid: true}
	}
	q := `UPDATE events SET reminder_sent = ?, reminder_sent_at = ?
		WHERE id = ? AND start_at = ? AND reminder_minutes ` + s.nullSafeEq() + ` ?`
	res, err := s.db.ExecContext(ctx, s.rebind(q), true, at.Unix(), j.EventID, j.Start.Unix(), explicit)
	if err != nil {
		return s.fail("mark_sent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail("mark_sent", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.get(ctx, s.db, j.EventID); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", reminder.ErrStale, j.EventID)
}

// nullSafeEq is the comparison operator that treats two NULLs as equal.
func (s *SQLStore) nullSafeEq() string {
	if s.driver == DriverPostgres {
		return "IS NOT DISTINCT FROM"
	}
	return "IS"
}

func (s *SQLStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		metrics.RecordStoreError("count")
		return 0
	}
	return n
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) query(ctx context.Context, op, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, s.fail(op, err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, s.fail(op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scan(row scanner) (model.Event, error) {
	var (
		e                       model.Event
		start, created, updated int64
		end, sentAt             sql.NullInt64
		location                sql.NullString
		minutes                 sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &start, &end, &location, &minutes,
		&e.ReminderSent, &sentAt, &created, &updated); err != nil {
		return model.Event{}, err
	}
	e.Start = s.fromUnix(start)
	e.CreatedAt = s.fromUnix(created)
	e.UpdatedAt = s.fromUnix(updated)
	if end.Valid {
		t := s.fromUnix(end.Int64)
		e.End = &t
	}
	if sentAt.Valid {
		t := s.fromUnix(sentAt.Int64)
		e.ReminderSentAt = &t
	}
	if location.Valid {
		l := location.String
		e.Location = &l
	}
	if minutes.Valid {
		m := int(minutes.Int64)
		e.ReminderMinutes = &m
	}
	return e, nil
}

// args returns the values of e in eventColumns order.
func (s *SQLStore) args(e model.Event) []any {
	var end, sentAt sql.NullInt64
	var location sql.NullString
	var minutes sql.NullInt64
	if e.End != nil {
		end = sql.NullInt64{Int64: e.End.Unix(), Valid: true}
	}
	if e.ReminderSentAt != nil {
		sentAt = sql.NullInt64{Int64: e.ReminderSentAt.Unix(), Valid: true}
	}
	if e.Location != nil {
		location = sql.NullString{String: *e.Location, Valid: true}
	}
	if e.ReminderMinutes != nil {
		minutes = sql.NullInt64{Int64: int64(*e.ReminderMinutes), Valid: true}
	}
	return []any{e.ID, e.OwnerID, e.Name, e.Start.Unix(), end, location, minutes,
		e.ReminderSent, sentAt, e.CreatedAt.Unix(), e.UpdatedAt.Unix()}
}

func (s *SQLStore) fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).In(s.cfg.loc)
}

// inZone truncates e to the precision the table keeps so writes and reads agree.
func (s *SQLStore) inZone(e model.Event) model.Event {
	e = clone(e)
	e.Start = s.fromUnix(e.Start.Unix())
	e.CreatedAt = s.fromUnix(e.CreatedAt.Unix())
	e.UpdatedAt = s.fromUnix(e.UpdatedAt.Unix())
	if e.End != nil {
		t := s.fromUnix(e.End.Unix())
		e.End = &t
	}
	if e.ReminderSentAt != nil {
		t := s.fromUnix(e.ReminderSentAt.Unix())
		e.ReminderSentAt = &t
	}
	return e
}

func (s *SQLStore) fail(op string, err error) error {
	metrics.RecordStoreError(op)
	metrics.RecordErrorByComponent("store", op)
	return fmt.Errorf("store %s: %w", op, err)
}
