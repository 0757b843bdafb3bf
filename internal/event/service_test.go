package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumni/internal/cloudinary"
	"alumni/internal/membership"
)

var today = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

type fakeFolders struct {
	created   []string
	createErr error
	listed    []string
	resources []cloudinary.Resource
	listErr   error
}

func (f *fakeFolders) CreateFolder(_ context.Context, path string) error {
	f.created = append(f.created, path)
	return f.createErr
}

func (f *fakeFolders) ListFolder(_ context.Context, folder string, _ int) ([]cloudinary.Resource, error) {
	f.listed = append(f.listed, folder)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]cloudinary.Resource(nil), f.resources...), nil
}

func newTestService(t *testing.T, cdn Folders) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	clock := membership.Clock{Now: func() time.Time { return today.Add(9 * time.Hour) }, Location: time.UTC}
	return NewService(db, cdn, "MES-AA", clock, zerolog.Nop()), mock
}

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "venue", "event_date", "event_time", "chief_guest"})
}

func TestCreateMakesFolder(t *testing.T) {
	cdn := &fakeFolders{}
	svc, mock := newTestService(t, cdn)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO events`).
		WithArgs(sqlmock.AnyArg(), "Annual  Meet 2026", "Reunion", "Main Hall", today.AddDate(0, 0, 10), "10:30 AM", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e, err := svc.Create(context.Background(), Input{
		Name:        "Annual  Meet 2026",
		Description: "Reunion",
		Venue:       "Main Hall",
		Date:        today.AddDate(0, 0, 10).Add(5 * time.Hour),
		Time:        "10:30 am",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, []string{"MES-AA/Events/Annual-Meet-2026"}, cdn.created)
}

func TestCreateRollsBackOnFolderFailure(t *testing.T) {
	svc, mock := newTestService(t, &fakeFolders{createErr: errors.New("401")})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO events`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), Input{Name: "Meet", Date: today})
	assert.ErrorIs(t, err, ErrFolder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStatus(t *testing.T) {
	svc, mock := newTestService(t, nil)

	mock.ExpectQuery(`event_date >= \$1 ORDER BY event_date ASC`).WithArgs(today).WillReturnRows(
		eventRows().AddRow("6b0f7d2e-7f43-4b8e-9d7a-5d1c9e0f0a01", "Meet", "d", "v", today, "10 AM", nil))
	up, err := svc.List(context.Background(), Upcoming)
	require.NoError(t, err)
	require.Len(t, up, 1)
	assert.True(t, svc.IsToday(up[0]))

	mock.ExpectQuery(`event_date < \$1 ORDER BY event_date DESC`).WithArgs(today).WillReturnRows(eventRows())
	done, err := svc.List(context.Background(), Completed)
	require.NoError(t, err)
	assert.Empty(t, done)

	_, err = svc.List(context.Background(), Status("past"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentWeekWindow(t *testing.T) {
	svc, mock := newTestService(t, nil)
	mock.ExpectQuery(`event_date >= \$1 AND event_date < \$2`).
		WithArgs(today, time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(eventRows())

	_, err := svc.CurrentWeek(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWithImages(t *testing.T) {
	cdn := &fakeFolders{resources: []cloudinary.Resource{{AssetID: "a1"}}}
	svc, mock := newTestService(t, cdn)
	id := "6b0f7d2e-7f43-4b8e-9d7a-5d1c9e0f0a01"

	mock.ExpectQuery(`FROM events WHERE id = \$1`).WithArgs(id).WillReturnRows(
		eventRows().AddRow(id, "Sports Day", "d", "v", today, "9 AM", "Dr. Rao"))

	e, images, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, e.ChiefGuest)
	assert.Equal(t, "Dr. Rao", *e.ChiefGuest)
	assert.Len(t, images, 1)
	assert.Equal(t, []string{"MES-AA/Events/Sports-Day"}, cdn.listed)

	_, _, err = svc.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGalleryNewestFirst(t *testing.T) {
	cdn := &fakeFolders{resources: []cloudinary.Resource{
		{AssetID: "mid", CreatedAt: "2026-05-02T08:00:00Z"},
		{AssetID: "new", CreatedAt: "2026-10-01T09:30:00Z"},
		{AssetID: "broken", CreatedAt: ""},
		{AssetID: "old", CreatedAt: "2025-12-31T23:59:59Z"},
	}}
	svc, _ := newTestService(t, cdn)

	got, err := svc.Gallery(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.AssetID)
	}
	assert.Equal(t, []string{"new", "mid", "old", "broken"}, ids)
	assert.Equal(t, []string{"MES-AA/Gallery"}, cdn.listed)
}

func TestImagesCDNFailure(t *testing.T) {
	cdn := &fakeFolders{listErr: errors.New("cloudinary: 420 rate limited")}
	svc, mock := newTestService(t, cdn)

	_, err := svc.Gallery(context.Background())
	assert.ErrorIs(t, err, ErrImages)

	id := "8a1c6f2e-4b7d-4c1e-9f3a-2d5e6f7a8b9c"
	mock.ExpectQuery(`FROM events WHERE id = \$1`).WithArgs(id).WillReturnRows(
		eventRows().AddRow(id, "Sports Day", "d", "v", today, "9 AM", nil))
	_, _, err = svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrImages)
	assert.NoError(t, mock.ExpectationsWereMet())
}
