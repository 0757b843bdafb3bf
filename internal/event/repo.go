package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"alumni/internal/store"
)

const eventColumns = `id, name, description, venue, event_date, event_time, chief_guest`

// Repository persists events in Postgres.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo over a connection or transaction.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

// Create inserts e.
func (r *Repository) Create(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, name, description, venue, event_date, event_time, chief_guest)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Name, e.Description, e.Venue, e.Date, e.Time, e.ChiefGuest)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Get returns the event with id.
func (r *Repository) Get(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	var e Event
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Venue, &e.Date, &e.Time, &e.ChiefGuest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// OnOrAfter lists events dated on or after day, soonest first.
func (r *Repository) OnOrAfter(ctx context.Context, day time.Time) ([]Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE event_date >= $1 ORDER BY event_date ASC`, day)
}

// Before lists events dated before day, most recent first.
func (r *Repository) Before(ctx context.Context, day time.Time) ([]Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE event_date < $1 ORDER BY event_date DESC`, day)
}

// Between lists events with from <= event_date < to, soonest first.
func (r *Repository) Between(ctx context.Context, from, to time.Time) ([]Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events
		WHERE event_date >= $1 AND event_date < $2 ORDER BY event_date ASC`, from, to)
}

// SearchBefore lists events dated before day whose name contains text.
func (r *Repository) SearchBefore(ctx context.Context, day time.Time, text string) ([]Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events
		WHERE event_date < $1 AND name ILIKE '%' || $2 || '%' ORDER BY event_date DESC`, day, text)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Venue, &e.Date, &e.Time, &e.ChiefGuest); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
