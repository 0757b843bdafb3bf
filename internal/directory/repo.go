package directory

import (
	"context"

	"alumni/internal/store"
)

// CommitteeMember is an office bearer of the association.
type CommitteeMember struct {
	ID          int64
	Name        string
	Role        string
	Designation string
	ImageURL    *string
}

// FamousAlumnus is a distinguished former student.
type FamousAlumnus struct {
	ID          int64
	Name        *string
	Award       *string
	Year        *string
	Category    *string
	Description *string
	Batch       *string
}

// Repository reads the committee and famous alumni reference tables.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo over a connection or transaction.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

// Committee lists committee members in their configured order.
func (r *Repository) Committee(ctx context.Context) ([]CommitteeMember, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, role, designation, image_url FROM committee ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CommitteeMember{}
	for rows.Next() {
		var m CommitteeMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.Designation, &m.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FamousAlumni lists famous alumni by name.
func (r *Repository) FamousAlumni(ctx context.Context) ([]FamousAlumnus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, award, year, category, description, batch FROM famous_alumni ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []FamousAlumnus{}
	for rows.Next() {
		var a FamousAlumnus
		if err := rows.Scan(&a.ID, &a.Name, &a.Award, &a.Year, &a.Category, &a.Description, &a.Batch); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
