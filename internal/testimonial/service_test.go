package testimonial

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumni/internal/notify"
)

type recorder struct {
	emails []notify.Email
}

func (r *recorder) Enqueue(_ context.Context, e notify.Email) error {
	r.emails = append(r.emails, e)
	return nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *recorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	rec := &recorder{}
	return NewService(db, rec, "contact@alumni.example.org", "https://api.example.org/", zerolog.Nop()), mock, rec
}

func TestSubmitSendsVerificationLink(t *testing.T) {
	svc, mock, rec := newTestService(t)

	mock.ExpectQuery(`INSERT INTO testimonials`).
		WithArgs("Great years", "2004", "Loved it", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	got, err := svc.Submit(context.Background(), " Great <b>years</b>", "2004", "<script>alert(1)</script>Loved it")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(42), got.ID)

	require.Len(t, rec.emails, 1)
	e := rec.emails[0]
	assert.Equal(t, notify.TestimonialVerification, e.Template)
	assert.Equal(t, "contact@alumni.example.org", e.To)
	link, _ := e.Vars["verify_url"].(string)
	require.True(t, strings.HasPrefix(link, "https://api.example.org/testimonials/verify/"), link)
	tok := strings.TrimPrefix(link, "https://api.example.org/testimonials/verify/")
	hash, id, ok := strings.Cut(tok, "+")
	require.True(t, ok)
	assert.Len(t, hash, 64)
	assert.Equal(t, "42", id)
}

func TestVerifyApprovesOnce(t *testing.T) {
	svc, mock, _ := newTestService(t)
	approve := `UPDATE testimonials SET approved = TRUE\s+WHERE id = \$1 AND verification_hash = \$2 AND approved = FALSE`

	mock.ExpectExec(approve).WithArgs(int64(42), "abc").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.Verify(context.Background(), "abc+42"))

	mock.ExpectExec(approve).WithArgs(int64(42), "abc").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT approved FROM testimonials`).WithArgs(int64(42), "abc").
		WillReturnRows(sqlmock.NewRows([]string{"approved"}).AddRow(true))
	assert.ErrorIs(t, svc.Verify(context.Background(), "abc+42"), ErrAlreadyApproved)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyWrongHashOrID(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectExec(`UPDATE testimonials`).WithArgs(int64(43), "abc").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT approved FROM testimonials`).WillReturnRows(sqlmock.NewRows([]string{"approved"}))
	assert.ErrorIs(t, svc.Verify(context.Background(), "abc+43"), ErrNotFound)

	for _, tok := range []string{"abc", "+42", "abc+x", ""} {
		assert.ErrorIs(t, svc.Verify(context.Background(), tok), ErrNotFound, tok)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRandomAndAll(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery(`ORDER BY random\(\) LIMIT \$1`).WithArgs(RandomLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "batch", "message"}).
			AddRow(1, "asha rao", "1999", "hello"))
	got, err := svc.Random(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Initial())
	assert.True(t, got[0].Approved)

	mock.ExpectQuery(`ORDER BY id DESC`).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "batch", "message"}))
	all, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}
