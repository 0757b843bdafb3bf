package testimonial

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"alumni/internal/store"
)

// Repository persists testimonials in Postgres.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo over a connection or transaction.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

// Create stores an unapproved testimonial and returns its id.
func (r *Repository) Create(ctx context.Context, t Testimonial, hash string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO testimonials (name, batch, message, approved, verification_hash)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id
	`, t.Name, t.Batch, t.Message, hash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert testimonial: %w", err)
	}
	return id, nil
}

// Approve flips approved for the testimonial matching both id and hash,
// only while it is still unapproved.
func (r *Repository) Approve(ctx context.Context, id int64, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE testimonials SET approved = TRUE
		WHERE id = $1 AND verification_hash = $2 AND approved = FALSE
	`, id, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Approved reports the approval flag of the testimonial matching id and hash.
func (r *Repository) Approved(ctx context.Context, id int64, hash string) (bool, error) {
	var approved bool
	err := r.db.QueryRowContext(ctx,
		`SELECT approved FROM testimonials WHERE id = $1 AND verification_hash = $2`, id, hash).Scan(&approved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return approved, err
}

// Random returns up to limit approved testimonials in random order.
func (r *Repository) Random(ctx context.Context, limit int) ([]Testimonial, error) {
	return r.list(ctx, `SELECT id, name, batch, message FROM testimonials
		WHERE approved = TRUE ORDER BY random() LIMIT $1`, limit)
}

// All returns every approved testimonial, newest first.
func (r *Repository) All(ctx context.Context) ([]Testimonial, error) {
	return r.list(ctx, `SELECT id, name, batch, message FROM testimonials
		WHERE approved = TRUE ORDER BY id DESC`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Testimonial, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Testimonial{}
	for rows.Next() {
		var t Testimonial
		if err := rows.Scan(&t.ID, &t.Name, &t.Batch, &t.Message); err != nil {
			return nil, err
		}
		t.Approved = true
		out = append(out, t)
	}
	return out, rows.Err()
}
