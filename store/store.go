// Package store provides persistence for the local calendar provider.
package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/aide/internal/profile"
)

// Event is a stored calendar event row.
// StartTs/EndTs are parsed epoch seconds used for window filtering;
// Start/End keep the original timestamp strings as rendered to the user.
type Event struct {
	ID          int64
	UID         string
	Title       string
	Start       string
	End         string
	StartTs     int64
	EndTs       int64
	Location    string
	Description string
	Attendees   string // JSON-encoded attendee list
	CreatedTs   int64
}

// FindEvent specifies conditions for listing events.
type FindEvent struct {
	UID     *string
	Query   *string // substring match on title
	StartGE *int64  // start_ts >= value
	StartLT *int64  // start_ts < value
}

// UpdateEvent specifies a partial update; nil fields are left untouched.
type UpdateEvent struct {
	UID         string
	Title       *string
	Start       *string
	End         *string
	StartTs     *int64
	EndTs       *int64
	Location    *string
	Description *string
	Attendees   *string
}

// Driver is an interface for store driver.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	CreateEvent(ctx context.Context, create *Event) (*Event, error)
	ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error)
	UpdateEvent(ctx context.Context, update *UpdateEvent) (*Event, error)
	DeleteEvent(ctx context.Context, uid string) error
}

// Store provides database access to stored calendar events.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateEvent(ctx context.Context, create *Event) (*Event, error) {
	return s.driver.CreateEvent(ctx, create)
}

func (s *Store) ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error) {
	return s.driver.ListEvents(ctx, find)
}

func (s *Store) UpdateEvent(ctx context.Context, update *UpdateEvent) (*Event, error) {
	return s.driver.UpdateEvent(ctx, update)
}

func (s *Store) DeleteEvent(ctx context.Context, uid string) error {
	return s.driver.DeleteEvent(ctx, uid)
}
