package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"alumni/internal/membership"
	"alumni/internal/store"
)

// Names of the scheduled jobs.
const (
	ExpiryReminders    = "expiry_reminders"
	ExpiredMemberships = "expired_memberships"
	BirthdayGreetings  = "birthday_greetings"
)

// Names lists every scheduled job in run order.
var Names = []string{ExpiryReminders, ExpiredMemberships, BirthdayGreetings}

// ErrUnknownJob is returned for a job name outside Names.
var ErrUnknownJob = errors.New("unknown job")

// Known reports whether name is a scheduled job.
func Known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Record is the last recorded run of a job.
type Record struct {
	ID      int64
	Name    string
	LastRun *time.Time
}

// Status is the health of a job as of today.
type Status struct {
	Name    string
	LastRun *time.Time
	Healthy bool
}

// Repository persists job run records.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo over a connection or transaction.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

// Ping records that name ran on day.
func (r *Repository) Ping(ctx context.Context, name string, day time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (job_name, job_last_runtime)
		VALUES ($1, $2)
		ON CONFLICT (job_name) DO UPDATE SET job_last_runtime = EXCLUDED.job_last_runtime
	`, name, day)
	if err != nil {
		return fmt.Errorf("ping job %s: %w", name, err)
	}
	return nil
}

// List returns every recorded job.
func (r *Repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT job_id, job_name, job_last_runtime FROM jobs ORDER BY job_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.LastRun); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Service records job runs and reports their health.
type Service struct {
	repo  *Repository
	clock membership.Clock
}

// NewService creates a job status service.
func NewService(db store.DBTX, clock membership.Clock) *Service {
	return &Service{repo: NewRepository(db), clock: clock}
}

// Ping records a successful run of name today.
func (s *Service) Ping(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if !Known(name) {
		return ErrUnknownJob
	}
	return s.repo.Ping(ctx, name, s.clock.Today())
}

// Report returns the health of every scheduled job. A job is healthy when it
// ran today or yesterday; a job that never ran is unhealthy.
func (s *Service) Report(ctx context.Context) ([]Status, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	last := make(map[string]*time.Time, len(records))
	for _, rec := range records {
		last[rec.Name] = rec.LastRun
	}

	today := s.clock.Today()
	out := make([]Status, 0, len(Names))
	for _, name := range Names {
		st := Status{Name: name, LastRun: last[name]}
		if st.LastRun != nil {
			days := membership.DaysBetween(*st.LastRun, today)
			st.Healthy = days >= 0 && days <= 1
		}
		out = append(out, st)
	}
	return out, nil
}
