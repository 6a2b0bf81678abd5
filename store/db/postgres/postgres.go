package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/hrygo/aide/internal/profile"
	"github.com/hrygo/aide/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection with the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	pgDB.SetMaxOpenConns(10)
	pgDB.SetMaxIdleConns(5)
	pgDB.SetConnMaxLifetime(30 * time.Minute)

	return &DB{db: pgDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const createTableStmt = `
CREATE TABLE IF NOT EXISTS calendar_event (
	id BIGSERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	start_at TEXT NOT NULL,
	end_at TEXT NOT NULL DEFAULT '',
	start_ts BIGINT NOT NULL,
	end_ts BIGINT NOT NULL DEFAULT 0,
	location TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	attendees TEXT NOT NULL DEFAULT '[]',
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calendar_event_start_ts ON calendar_event (start_ts);
`

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, createTableStmt); err != nil {
		return errors.Wrap(err, "failed to migrate calendar_event table")
	}
	return nil
}

func (d *DB) CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO calendar_event (uid, title, start_at, end_at, start_ts, end_ts, location, description, attendees, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.Title,
		create.Start,
		create.End,
		create.StartTs,
		create.EndTs,
		create.Location,
		create.Description,
		create.Attendees,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create event")
	}
	return create, nil
}

func (d *DB) ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error) {
	where, args := []string{"TRUE"}, []any{}
	if v := find.UID; v != nil {
		args = append(args, *v)
		where = append(where, fmt.Sprintf("uid = $%d", len(args)))
	}
	if v := find.Query; v != nil {
		args = append(args, "%"+*v+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if v := find.StartGE; v != nil {
		args = append(args, *v)
		where = append(where, fmt.Sprintf("start_ts >= $%d", len(args)))
	}
	if v := find.StartLT; v != nil {
		args = append(args, *v)
		where = append(where, fmt.Sprintf("start_ts < $%d", len(args)))
	}

	query := `
		SELECT id, uid, title, start_at, end_at, start_ts, end_ts, location, description, attendees, created_ts
		FROM calendar_event
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY start_ts ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	defer rows.Close()

	list := []*store.Event{}
	for rows.Next() {
		event := &store.Event{}
		if err := rows.Scan(
			&event.ID,
			&event.UID,
			&event.Title,
			&event.Start,
			&event.End,
			&event.StartTs,
			&event.EndTs,
			&event.Location,
			&event.Description,
			&event.Attendees,
			&event.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		list = append(list, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateEvent(ctx context.Context, update *store.UpdateEvent) (*store.Event, error) {
	set, args := []string{}, []any{}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if v := update.Title; v != nil {
		add("title", *v)
	}
	if v := update.Start; v != nil {
		add("start_at", *v)
	}
	if v := update.End; v != nil {
		add("end_at", *v)
	}
	if v := update.StartTs; v != nil {
		add("start_ts", *v)
	}
	if v := update.EndTs; v != nil {
		add("end_ts", *v)
	}
	if v := update.Location; v != nil {
		add("location", *v)
	}
	if v := update.Description; v != nil {
		add("description", *v)
	}
	if v := update.Attendees; v != nil {
		add("attendees", *v)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.UID)

	stmt := fmt.Sprintf("UPDATE calendar_event SET %s WHERE uid = $%d", strings.Join(set, ", "), len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update event")
	}

	uid := update.UID
	list, err := d.ListEvents(ctx, &store.FindEvent{UID: &uid})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("event %s not found after update", uid)
	}
	return list[0], nil
}

func (d *DB) DeleteEvent(ctx context.Context, uid string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM calendar_event WHERE uid = $1", uid); err != nil {
		return errors.Wrap(err, "failed to delete event")
	}
	return nil
}
