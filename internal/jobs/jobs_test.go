package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumni/internal/membership"
	"alumni/internal/notify"
)

var today = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func testClock() membership.Clock {
	return membership.Clock{Now: func() time.Time { return today.Add(8 * time.Hour) }, Location: time.UTC}
}

func TestPingUpsertsToday(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`ON CONFLICT \(job_name\) DO UPDATE`).WithArgs(ExpiryReminders, today).
		WillReturnResult(sqlmock.NewResult(1, 1))

	svc := NewService(db, testClock())
	require.NoError(t, svc.Ping(context.Background(), ExpiryReminders))
	assert.ErrorIs(t, svc.Ping(context.Background(), "cleanup"), ErrUnknownJob)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportHealth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM jobs ORDER BY job_name`).WillReturnRows(
		sqlmock.NewRows([]string{"job_id", "job_name", "job_last_runtime"}).
			AddRow(1, BirthdayGreetings, today.AddDate(0, 0, -2)).
			AddRow(2, ExpiredMemberships, today.AddDate(0, 0, -1)).
			AddRow(3, ExpiryReminders, today))

	got, err := NewService(db, testClock()).Report(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	health := map[string]bool{}
	for _, s := range got {
		health[s.Name] = s.Healthy
	}
	assert.Equal(t, map[string]bool{ExpiryReminders: true, ExpiredMemberships: true, BirthdayGreetings: false}, health)
}

func TestReportNeverRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM jobs`).WillReturnRows(sqlmock.NewRows([]string{"job_id", "job_name", "job_last_runtime"}))

	got, err := NewService(db, testClock()).Report(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(Names))
	for _, s := range got {
		assert.False(t, s.Healthy, s.Name)
		assert.Nil(t, s.LastRun)
	}
}

func TestClientSendsSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("job-secret") != "cron-key" {
			http.Error(w, `{"error":"could not validate credentials"}`, http.StatusUnauthorized)
			return
		}
		switch r.Method + " " + r.URL.Path {
		case "GET /expiring_memberships/15":
			_ = json.NewEncoder(w).Encode([]ExpiringMember{{Name: "Ravi", Email: "r@x.org", AltUserID: "alt", DaysToExpiry: 15}})
		case "PUT /renewal_hash":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "r@x.org", body["email"])
			_, _ = w.Write([]byte(`{"renewal_hash":"abc123"}`))
		case "PUT /jobs":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "cron-key")
	members, err := c.Expiring(context.Background(), 15)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, 15, members[0].DaysToExpiry)

	hash, err := c.IssueRenewalHash(context.Background(), "r@x.org")
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)

	require.NoError(t, c.Ping(context.Background(), ExpiryReminders))

	_, err = NewClient(srv.URL, "wrong").Birthdays(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

type fakeAPI struct {
	expiring map[int][]ExpiringMember
	expired  []ExpiredMember
	birthday []BirthdayMember
	hashErr  error
	expiredC []string
	pings    []string
	// hashes, when set, keeps one outstanding hash per email the way the
	// users table does.
	hashes map[string]string
	issued int
}

func (f *fakeAPI) Expiring(_ context.Context, days int) ([]ExpiringMember, error) {
	return f.expiring[days], nil
}

func (f *fakeAPI) IssueRenewalHash(_ context.Context, email string) (string, error) {
	if f.hashErr != nil {
		return "", f.hashErr
	}
	if f.hashes == nil {
		return "h-" + email, nil
	}
	if h, ok := f.hashes[email]; ok {
		return h, nil
	}
	f.issued++
	h := fmt.Sprintf("h%d", f.issued)
	f.hashes[email] = h
	return h, nil
}

func (f *fakeAPI) RecentlyExpired(context.Context) ([]ExpiredMember, error) { return f.expired, nil }

func (f *fakeAPI) Expire(_ context.Context, email string) error {
	f.expiredC = append(f.expiredC, email)
	return nil
}

func (f *fakeAPI) Birthdays(context.Context) ([]BirthdayMember, error) { return f.birthday, nil }

func (f *fakeAPI) Ping(_ context.Context, name string) error {
	f.pings = append(f.pings, name)
	return nil
}

type fakeMailer struct {
	sent []notify.Email
}

func (f *fakeMailer) Deliver(_ context.Context, e notify.Email) bool {
	f.sent = append(f.sent, e)
	return true
}

func TestExpiryRemindersJob(t *testing.T) {
	api := &fakeAPI{expiring: map[int][]ExpiringMember{
		7: {{Name: "Ravi", Email: "r@x.org", AltUserID: "alt-1", DaysToExpiry: 7}},
	}}
	mail := &fakeMailer{}
	r := NewRunner(api, mail, "https://alumni.example.org", []int{30, 7}, zerolog.Nop())

	require.NoError(t, r.Run(context.Background(), ExpiryReminders))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, notify.RenewalReminder, mail.sent[0].Template)
	assert.Equal(t, "https://alumni.example.org/renewal/alt-1-h-r@x.org", mail.sent[0].Vars["renewal_url"])
	assert.Equal(t, []string{ExpiryReminders}, api.pings)
}

func TestExpiryRemindersReuseLinkAcrossReminderDays(t *testing.T) {
	ravi := ExpiringMember{Name: "Ravi", Email: "r@x.org", AltUserID: "alt-1"}
	api := &fakeAPI{hashes: map[string]string{}}
	mail := &fakeMailer{}
	r := NewRunner(api, mail, "https://alumni.example.org", []int{30, 7}, zerolog.Nop())

	// 30 days before expiry
	ravi.DaysToExpiry = 30
	api.expiring = map[int][]ExpiringMember{30: {ravi}}
	require.NoError(t, r.Run(context.Background(), ExpiryReminders))

	// 7 days before expiry, a later run
	ravi.DaysToExpiry = 7
	api.expiring = map[int][]ExpiringMember{7: {ravi}}
	require.NoError(t, r.Run(context.Background(), ExpiryReminders))

	require.Len(t, mail.sent, 2)
	assert.Equal(t, 30, mail.sent[0].Vars["days"])
	assert.Equal(t, 7, mail.sent[1].Vars["days"])
	assert.Equal(t, "https://alumni.example.org/renewal/alt-1-h1", mail.sent[0].Vars["renewal_url"])
	assert.Equal(t, mail.sent[0].Vars["renewal_url"], mail.sent[1].Vars["renewal_url"])
	assert.Equal(t, 1, api.issued)
}

func TestExpiryRemindersSkipsFailedHash(t *testing.T) {
	api := &fakeAPI{
		expiring: map[int][]ExpiringMember{1: {{Email: "r@x.org"}}},
		hashErr:  errors.New("boom"),
	}
	mail := &fakeMailer{}
	require.NoError(t, NewRunner(api, mail, "", []int{1}, zerolog.Nop()).Run(context.Background(), ExpiryReminders))
	assert.Empty(t, mail.sent)
}

func TestExpiredMembershipsJob(t *testing.T) {
	api := &fakeAPI{expired: []ExpiredMember{{Name: "Asha", Email: "a@x.org", AltUserID: "alt-2", RenewalHash: "ff"}}}
	mail := &fakeMailer{}
	r := NewRunner(api, mail, "https://alumni.example.org", nil, zerolog.Nop())

	require.NoError(t, r.Run(context.Background(), ExpiredMemberships))
	assert.Equal(t, []string{"a@x.org"}, api.expiredC)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, notify.MembershipExpired, mail.sent[0].Template)
	assert.Equal(t, "https://alumni.example.org/renewal/alt-2-ff", mail.sent[0].Vars["renewal_url"])
}

func TestRunAllAndUnknown(t *testing.T) {
	api := &fakeAPI{birthday: []BirthdayMember{{Name: "Ravi", Email: "r@x.org"}}}
	mail := &fakeMailer{}
	r := NewRunner(api, mail, "", []int{30}, zerolog.Nop())

	r.RunAll(context.Background())
	assert.Equal(t, Names, api.pings)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, notify.Birthday, mail.sent[0].Template)

	assert.ErrorIs(t, r.Run(context.Background(), "cleanup"), ErrUnknownJob)
}

func TestNextRun(t *testing.T) {
	next, err := NextRun("0 7 * * *", time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC), next)

	_, err = NextRun("every day", time.Now())
	assert.Error(t, err)
}
