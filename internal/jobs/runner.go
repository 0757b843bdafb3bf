package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"alumni/internal/errtrack"
	"alumni/internal/notify"
)

// API is the subset of the HTTP API used by scheduled jobs.
type API interface {
	Expiring(ctx context.Context, days int) ([]ExpiringMember, error)
	IssueRenewalHash(ctx context.Context, email string) (string, error)
	RecentlyExpired(ctx context.Context) ([]ExpiredMember, error)
	Expire(ctx context.Context, email string) error
	Birthdays(ctx context.Context) ([]BirthdayMember, error)
	Ping(ctx context.Context, name string) error
}

// Mailer delivers one email synchronously.
type Mailer interface {
	Deliver(ctx context.Context, email notify.Email) bool
}

// Runner executes the scheduled jobs.
type Runner struct {
	api          API
	mail         Mailer
	siteDomain   string
	reminderDays []int
	logger       zerolog.Logger
}

// NewRunner creates a runner. Renewal links point at siteDomain.
func NewRunner(api API, mail Mailer, siteDomain string, reminderDays []int, logger zerolog.Logger) *Runner {
	return &Runner{
		api:          api,
		mail:         mail,
		siteDomain:   siteDomain,
		reminderDays: reminderDays,
		logger:       logger.With().Str("component", "jobs").Logger(),
	}
}

// RenewalURL is the link a member follows to renew.
func (r *Runner) RenewalURL(altUserID, hash string) string {
	return r.siteDomain + "/renewal/" + altUserID + "-" + hash
}

// Run executes the named job and records it on success.
func (r *Runner) Run(ctx context.Context, name string) error {
	var err error
	switch name {
	case ExpiryReminders:
		err = r.expiryReminders(ctx)
	case ExpiredMemberships:
		err = r.expiredMemberships(ctx)
	case BirthdayGreetings:
		err = r.birthdayGreetings(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	if err := r.api.Ping(ctx, name); err != nil {
		return fmt.Errorf("ping %s: %w", name, err)
	}
	r.logger.Info().Str("job", name).Msg("job completed")
	return nil
}

// RunAll executes every job once. A failing job does not stop the others.
func (r *Runner) RunAll(ctx context.Context) {
	for _, name := range Names {
		if err := r.Run(ctx, name); err != nil {
			r.logger.Error().Err(err).Str("job", name).Msg("job failed")
			errtrack.Capture(ctx, err)
		}
	}
}

// Schedule runs every job on spec until ctx is cancelled.
func (r *Runner) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.RunAll(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	c.Start()
	r.logger.Info().Str("spec", spec).Msg("scheduler started")
	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info().Msg("scheduler stopped")
	return nil
}

func (r *Runner) expiryReminders(ctx context.Context) error {
	for _, days := range r.reminderDays {
		members, err := r.api.Expiring(ctx, days)
		if err != nil {
			return err
		}
		for _, m := range members {
			hash, err := r.api.IssueRenewalHash(ctx, m.Email)
			if err != nil {
				r.logger.Error().Err(err).Str("email", m.Email).Msg("issue renewal hash failed")
				errtrack.Capture(ctx, err)
				continue
			}
			r.mail.Deliver(ctx, notify.Email{
				Template: notify.RenewalReminder,
				To:       m.Email,
				Name:     m.Name,
				Vars: map[string]any{
					"days":        m.DaysToExpiry,
					"renewal_url": r.RenewalURL(m.AltUserID, hash),
				},
			})
		}
		r.logger.Info().Int("days", days).Int("members", len(members)).Msg("expiry reminders sent")
	}
	return nil
}

func (r *Runner) expiredMemberships(ctx context.Context) error {
	members, err := r.api.RecentlyExpired(ctx)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := r.api.Expire(ctx, m.Email); err != nil {
			r.logger.Error().Err(err).Str("email", m.Email).Msg("expire membership failed")
			errtrack.Capture(ctx, err)
			continue
		}
		r.mail.Deliver(ctx, notify.Email{
			Template: notify.MembershipExpired,
			To:       m.Email,
			Name:     m.Name,
			Vars:     map[string]any{"renewal_url": r.RenewalURL(m.AltUserID, m.RenewalHash)},
		})
	}
	r.logger.Info().Int("members", len(members)).Msg("expired memberships processed")
	return nil
}

func (r *Runner) birthdayGreetings(ctx context.Context) error {
	members, err := r.api.Birthdays(ctx)
	if err != nil {
		return err
	}
	sent := 0
	for _, m := range members {
		if r.mail.Deliver(ctx, notify.Email{Template: notify.Birthday, To: m.Email, Name: m.Name}) {
			sent++
		}
	}
	r.logger.Info().Int("members", len(members)).Int("sent", sent).Msg("birthday greetings sent")
	return nil
}

// NextRun returns the next activation of spec after now.
func NextRun(spec string, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}
