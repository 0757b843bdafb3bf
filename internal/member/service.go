package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"alumni/internal/errtrack"
	"alumni/internal/membership"
	"alumni/internal/notify"
	"alumni/internal/sanitize"
	"alumni/internal/store"
	"alumni/internal/token"
)

// PhotoStore uploads profile photos and returns their public URL.
type PhotoStore interface {
	StoreProfilePhoto(ctx context.Context, altUserID string, data []byte, filename string) (string, error)
}

// Options configures a Service.
type Options struct {
	SiteDomain     string
	LifetimeAmount int
	AnnualAmount   int
	Clock          membership.Clock
	Photos         PhotoStore
	Notifier       notify.Enqueuer
	Logger         zerolog.Logger
}

// Service implements registration, payment and renewal workflows for members.
type Service struct {
	db     *sql.DB
	repo   *Repository
	opts   Options
	logger zerolog.Logger
}

// NewService creates a service backed by db.
func NewService(db *sql.DB, opts Options) *Service {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}
	return &Service{
		db:     db,
		repo:   NewRepository(db),
		opts:   opts,
		logger: opts.Logger.With().Str("component", "member").Logger(),
	}
}

// Today returns the service's current date.
func (s *Service) Today() time.Time {
	return s.opts.Clock.Today()
}

// Fee returns the configured membership fee for t.
func (s *Service) Fee(t membership.Type) int {
	if t == membership.Lifetime {
		return s.opts.LifetimeAmount
	}
	return s.opts.AnnualAmount
}

// Register validates a registration, uploads the optional photo and stores the member.
func (s *Service) Register(ctx context.Context, in Registration) (Member, error) {
	mode := in.PaymentMode
	if mode == "" {
		mode = PaymentOnline
	}
	if mode == PaymentOnline && strings.TrimSpace(in.RazorpayOrderID) == "" {
		return Member{}, ErrOrderRequired
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return Member{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return Member{}, ErrEmailExists
	}

	title := cases.Title(language.English)
	clean := func(v string) string { return title.String(sanitize.Text(v)) }
	optional := func(v string) *string {
		out := sanitize.OptionalText(v)
		if out != nil {
			*out = title.String(*out)
		}
		return out
	}

	today := s.Today()
	altID := uuid.NewString()
	idCardURL := s.opts.SiteDomain + "/card/" + altID

	m := Member{
		Prefix:         clean(in.Prefix),
		FirstName:      clean(in.FirstName),
		LastName:       clean(in.LastName),
		Email:          email,
		Mobile:         sanitize.OptionalText(in.Mobile),
		Birthday:       membership.Date(in.Birthday),
		Address1:       clean(in.Address1),
		Address2:       optional(in.Address2),
		City:           clean(in.City),
		State:          clean(in.State),
		Pincode:        strings.ToUpper(sanitize.Text(in.Pincode)),
		Country:        clean(in.Country),
		DurationStart:  in.DurationStart,
		DurationEnd:    in.DurationEnd,
		CoursePUC:      sanitize.OptionalText(in.CoursePUC),
		CourseDegree:   sanitize.OptionalText(in.CourseDegree),
		CoursePG:       sanitize.OptionalText(in.CoursePG),
		CourseOthers:   sanitize.OptionalText(in.CourseOthers),
		Vision:         sanitize.OptionalText(in.Vision),
		Profession:     optional(in.Profession),
		OtherInterests: sanitize.OptionalText(in.OtherInterests),
		MembershipType: in.MembershipType,
		PaymentAmount:  float64(s.Fee(in.MembershipType)),
		PaymentMode:    mode,
		DateCreated:    today,
		AltUserID:      altID,
		IDCardURL:      &idCardURL,
	}
	if mode == PaymentOnline {
		orderID := strings.TrimSpace(in.RazorpayOrderID)
		m.RazorpayOrderID = &orderID
	}
	if in.MembershipType == membership.Annual {
		validUpto := membership.AddYears(today, 1)
		m.ValidUpto = &validUpto
	}
	if in.MembershipType == membership.Lifetime {
		certURL := s.opts.SiteDomain + "/certificate/" + altID
		m.CertificateURL = &certURL
	}

	if len(in.Photo) > 0 && s.opts.Photos != nil {
		url, err := s.opts.Photos.StoreProfilePhoto(ctx, altID, in.Photo, in.PhotoName)
		if err != nil {
			return Member{}, fmt.Errorf("%w: %v", ErrPhotoUpload, err)
		}
		m.ProfileURL = &url
	}

	err = store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.EmailExists(ctx, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return ErrEmailExists
		}
		m.ID, err = repo.Create(ctx, m)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Member{}, ErrEmailExists
		}
		return Member{}, err
	}

	s.logger.Info().Int64("member_id", m.ID).Str("membership_type", string(m.MembershipType)).Msg("member registered")
	s.enqueue(ctx, notify.Email{
		Template: notify.Registration,
		To:       m.Email,
		Name:     m.FirstName,
		Vars: map[string]any{
			"membership_id":   m.MembershipID(),
			"membership_type": string(m.MembershipType),
			"id_card_url":     idCardURL,
		},
	})
	return m, nil
}

// EmailRegistered reports whether email is already registered.
func (s *Service) EmailRegistered(ctx context.Context, email string) (bool, error) {
	return s.repo.EmailExists(ctx, strings.TrimSpace(email))
}

// ByAltID returns the member with the public alternate id.
func (s *Service) ByAltID(ctx context.Context, altUserID string) (*Member, error) {
	return s.repo.FindByAltID(ctx, altUserID)
}

// ByMembershipID resolves a formatted membership id to its member.
func (s *Service) ByMembershipID(ctx context.Context, membershipID string) (*Member, error) {
	_, id, err := membership.ParseID(membershipID)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// ManualPaymentDetails returns the member only while an offline payment is pending.
func (s *Service) ManualPaymentDetails(ctx context.Context, email string) (*Member, error) {
	m, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if m.PaymentMode != PaymentManual || m.PaymentStatus {
		return nil, ErrNotManualPayment
	}
	return m, nil
}

// NotifyManualPayment emails offline payment instructions once and records that they were sent.
func (s *Service) NotifyManualPayment(ctx context.Context, email string) error {
	m, err := s.ManualPaymentDetails(ctx, email)
	if err != nil {
		return err
	}
	if !m.ManualPaymentNotification {
		s.enqueue(ctx, notify.Email{
			Template: notify.ManualPayment,
			To:       m.Email,
			Name:     m.FirstName,
			Vars: map[string]any{
				"membership_id": m.MembershipID(),
				"amount":        int64(m.PaymentAmount),
			},
		})
	}
	if _, err := s.repo.MarkManualPaymentNotified(ctx, m.Email); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// ConfirmManualPayment marks a pending offline payment as received. Annual
// memberships become valid for one year from today.
func (s *Service) ConfirmManualPayment(ctx context.Context, id int64) (*Member, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.PaymentMode != PaymentManual || m.PaymentStatus {
		return nil, ErrNotManualPayment
	}

	var validUpto *time.Time
	if m.MembershipType == membership.Annual {
		v := membership.AddYears(s.Today(), 1)
		validUpto = &v
	}
	ok, err := s.repo.ConfirmManualPayment(ctx, id, validUpto)
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}
	if !ok {
		return nil, ErrNotManualPayment
	}
	m.PaymentStatus = true
	if validUpto != nil {
		m.ValidUpto = validUpto
	}
	s.logger.Info().Int64("member_id", m.ID).Msg("manual payment confirmed")
	s.enqueue(ctx, paymentConfirmedEmail(*m))
	return m, nil
}

// MarkPaid records a verified online payment for email. The payment must
// settle the order the member registered with, for the amount they owe.
func (s *Service) MarkPaid(ctx context.Context, email string, p PaymentProof) (*Member, error) {
	m, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if m.PaymentStatus || m.RazorpayOrderID == nil || *m.RazorpayOrderID != p.OrderID || p.Amount != paise(m.PaymentAmount) {
		s.logger.Warn().Int64("member_id", m.ID).Str("order_id", p.OrderID).Int64("amount", p.Amount).Msg("payment rejected")
		return nil, ErrPaymentMismatch
	}

	ok, err := s.repo.MarkPaidOnline(ctx, email, p.OrderID, p.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if !ok {
		return nil, ErrPaymentMismatch
	}
	m.PaymentStatus = true
	m.RazorpayPaymentID = &p.PaymentID
	s.enqueue(ctx, paymentConfirmedEmail(*m))
	return m, nil
}

func paise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func paymentConfirmedEmail(m Member) notify.Email {
	vars := map[string]any{"membership_id": m.MembershipID()}
	if m.IDCardURL != nil {
		vars["id_card_url"] = *m.IDCardURL
	}
	if m.CertificateURL != nil {
		vars["certificate_url"] = *m.CertificateURL
	}
	return notify.Email{Template: notify.PaymentConfirmed, To: m.Email, Name: m.FirstName, Vars: vars}
}

// Unsubscribe stops greeting and reminder emails for email.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	ok, err := s.repo.Unsubscribe(ctx, email)
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Search finds members by name and profession substrings.
func (s *Service) Search(ctx context.Context, firstName, lastName, profession string) ([]Member, error) {
	return s.repo.Search(ctx, firstName, lastName, profession)
}

// Birthdays lists members whose birthday is today.
func (s *Service) Birthdays(ctx context.Context) ([]Member, error) {
	today := s.Today()
	return s.repo.Birthdays(ctx, today.Month(), today.Day())
}

// List returns members of a type filtered by payment status.
func (s *Service) List(ctx context.Context, t membership.Type, paid bool) ([]Member, error) {
	return s.repo.ListByTypeAndPayment(ctx, t, paid)
}

// Totals returns dashboard aggregates.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	return s.repo.Totals(ctx)
}

// RenewalDetails resolves the token from a renewal link ({alt_user_id}-{hash})
// and proposes the next validity date.
func (s *Service) RenewalDetails(ctx context.Context, renewalToken string) (RenewalPreview, error) {
	m, err := s.findByRenewalToken(ctx, s.repo, renewalToken)
	if err != nil {
		return RenewalPreview{}, err
	}
	return s.preview(*m), nil
}

func (s *Service) findByRenewalToken(ctx context.Context, repo *Repository, renewalToken string) (*Member, error) {
	hash := renewalToken
	if i := strings.LastIndex(renewalToken, "-"); i >= 0 {
		hash = renewalToken[i+1:]
	}
	if hash == "" {
		return nil, ErrNotFound
	}
	return repo.FindByRenewalHash(ctx, hash)
}

func (s *Service) preview(m Member) RenewalPreview {
	today := s.Today()
	current := today
	if m.ValidUpto != nil {
		current = *m.ValidUpto
	}
	return RenewalPreview{Member: m, Current: current, Renewal: membership.ProposeRenewal(current, today)}
}

// RenewalRequest is the client's renewal commit. PaymentAmount and ValidUpto
// are optional echoes of the preview; when set they must match what the
// server computes. Payment is required for online renewals.
type RenewalRequest struct {
	Token          string
	MembershipType membership.Type
	PaymentMode    string
	PaymentAmount  *float64
	ValidUpto      *time.Time
	Payment        *PaymentProof
}

// CommitRenewal applies a renewal for the member holding the renewal token.
// The fee and the new validity are computed here; online renewals are
// recorded as paid, manual ones wait for an admin to confirm the payment.
func (s *Service) CommitRenewal(ctx context.Context, req RenewalRequest) (*Member, error) {
	mode := req.PaymentMode
	if mode == "" {
		mode = PaymentOnline
	}
	fee := float64(s.Fee(req.MembershipType))

	var renewed *Member
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		m, err := s.findByRenewalToken(ctx, repo, req.Token)
		if err != nil {
			return err
		}
		next := s.preview(*m).NewValidUpto
		if req.PaymentAmount != nil && *req.PaymentAmount != fee {
			return fmt.Errorf("%w: amount %.2f, fee is %.2f", ErrRenewalMismatch, *req.PaymentAmount, fee)
		}
		if req.ValidUpto != nil && !membership.Date(*req.ValidUpto).Equal(next) {
			return fmt.Errorf("%w: validity must be %s", ErrRenewalMismatch, next.Format(membership.DateLayout))
		}

		u := RenewalUpdate{
			ID:             m.ID,
			MembershipType: req.MembershipType,
			PaymentAmount:  fee,
			ValidUpto:      next,
			DateRenewed:    s.Today(),
			PaymentMode:    mode,
		}
		if mode == PaymentOnline {
			p := req.Payment
			if p == nil || p.Amount != paise(fee) || (m.RazorpayOrderID != nil && *m.RazorpayOrderID == p.OrderID) {
				s.logger.Warn().Int64("member_id", m.ID).Msg("renewal payment rejected")
				return ErrPaymentMismatch
			}
			u.PaymentStatus = true
			u.RazorpayOrderID = &p.OrderID
			u.RazorpayPaymentID = &p.PaymentID
		}
		if req.MembershipType == membership.Lifetime {
			url := s.opts.SiteDomain + "/certificate/" + m.AltUserID
			u.CertificateURL = &url
		}
		ok, err := repo.ApplyRenewal(ctx, u)
		if err != nil {
			return fmt.Errorf("apply renewal: %w", err)
		}
		if !ok {
			return ErrNotFound
		}

		m.MembershipType = u.MembershipType
		m.PaymentAmount = u.PaymentAmount
		m.ValidUpto = &u.ValidUpto
		m.DateRenewed = &u.DateRenewed
		m.PaymentMode = u.PaymentMode
		m.PaymentStatus = u.PaymentStatus
		m.Expired = false
		m.RenewalHash = nil
		if u.RazorpayOrderID != nil {
			m.RazorpayOrderID = u.RazorpayOrderID
			m.RazorpayPaymentID = u.RazorpayPaymentID
		}
		if u.CertificateURL != nil {
			m.CertificateURL = u.CertificateURL
		}
		renewed = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("member_id", renewed.ID).Str("payment_mode", renewed.PaymentMode).Msg("membership renewed")
	if !renewed.PaymentStatus {
		s.enqueue(ctx, notify.Email{
			Template: notify.ManualPayment,
			To:       renewed.Email,
			Name:     renewed.FirstName,
			Vars: map[string]any{
				"membership_id": renewed.MembershipID(),
				"amount":        int64(renewed.PaymentAmount),
			},
		})
		return renewed, nil
	}
	s.enqueue(ctx, notify.Email{
		Template: notify.RenewalConfirmed,
		To:       renewed.Email,
		Name:     renewed.FirstName,
		Vars:     map[string]any{"valid_upto": renewed.ValidUpto.Format(membership.DisplayLayout)},
	})
	return renewed, nil
}

// ClearRenewalHash removes the renewal hash after the renewal payment succeeded.
func (s *Service) ClearRenewalHash(ctx context.Context, altUserID string) error {
	ok, err := s.repo.ClearRenewalHash(ctx, altUserID)
	if err != nil {
		return fmt.Errorf("clear renewal hash: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Expiring lists annual members whose membership ends exactly days from today.
func (s *Service) Expiring(ctx context.Context, days int) ([]Member, error) {
	return s.repo.ExpiringOn(ctx, s.Today().AddDate(0, 0, days))
}

// RecentlyExpired lists annual members whose membership ended yesterday and
// who were sent a renewal hash.
func (s *Service) RecentlyExpired(ctx context.Context) ([]Member, error) {
	return s.repo.ExpiredOn(ctx, s.Today().AddDate(0, 0, -1))
}

// IssueRenewalHash returns the renewal hash for email, generating one if the
// member has none outstanding. Every reminder of one renewal cycle therefore
// carries the same link.
func (s *Service) IssueRenewalHash(ctx context.Context, email string) (string, error) {
	hash, err := token.Hex(16)
	if err != nil {
		return "", err
	}
	stored, err := s.repo.SetRenewalHash(ctx, email, hash)
	if errors.Is(err, ErrNotFound) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("set renewal hash: %w", err)
	}
	return stored, nil
}

// Expire marks the membership of email as expired.
func (s *Service) Expire(ctx context.Context, email string) error {
	ok, err := s.repo.MarkExpired(ctx, email)
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) enqueue(ctx context.Context, email notify.Email) {
	if err := s.opts.Notifier.Enqueue(ctx, email); err != nil {
		s.logger.Error().Err(err).Str("template", string(email.Template)).Msg("enqueue email failed")
		errtrack.Capture(ctx, err)
	}
}
