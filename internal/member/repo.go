package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"alumni/internal/membership"
	"alumni/internal/store"
)

const memberColumns = `id, prefix, first_name, last_name, email, mobile, birthday, address1, address2, city, state,
	pincode, country, duration_start, duration_end, course_puc, course_degree, course_pg, course_others,
	vision, profession, other_interests, membership_type, payment_status, payment_amount, payment_mode,
	razorpay_order_id, razorpay_payment_id, date_created, membership_valid_upto, membership_expired,
	date_renewed, renewal_hash, alt_user_id, profile_url, id_card_url, membership_certificate_url,
	manual_payment_notification, email_subscription_status`

// Repository persists members in Postgres.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo over a connection or transaction.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (Member, error) {
	var m Member
	err := row.Scan(
		&m.ID, &m.Prefix, &m.FirstName, &m.LastName, &m.Email, &m.Mobile, &m.Birthday, &m.Address1, &m.Address2,
		&m.City, &m.State, &m.Pincode, &m.Country, &m.DurationStart, &m.DurationEnd, &m.CoursePUC, &m.CourseDegree,
		&m.CoursePG, &m.CourseOthers, &m.Vision, &m.Profession, &m.OtherInterests, &m.MembershipType,
		&m.PaymentStatus, &m.PaymentAmount, &m.PaymentMode, &m.RazorpayOrderID, &m.RazorpayPaymentID,
		&m.DateCreated, &m.ValidUpto, &m.Expired, &m.DateRenewed, &m.RenewalHash, &m.AltUserID, &m.ProfileURL,
		&m.IDCardURL, &m.CertificateURL, &m.ManualPaymentNotification, &m.EmailSubscribed,
	)
	return m, err
}

func (r *Repository) findOne(ctx context.Context, where string, arg any) (*Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM users WHERE `+where+` LIMIT 1`, arg)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EmailExists reports whether a registration already uses email (case-insensitive).
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

// FindByEmail returns the member registered with email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	return r.findOne(ctx, `lower(email) = lower($1)`, email)
}

// FindByAltID returns the member with the given public alternate id.
func (r *Repository) FindByAltID(ctx context.Context, altUserID string) (*Member, error) {
	return r.findOne(ctx, `alt_user_id = $1`, altUserID)
}

// FindByID returns the member with the given record id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Member, error) {
	return r.findOne(ctx, `id = $1`, id)
}

// FindByRenewalHash returns the member a renewal hash was issued to.
func (r *Repository) FindByRenewalHash(ctx context.Context, hash string) (*Member, error) {
	return r.findOne(ctx, `renewal_hash = $1`, hash)
}

// Create inserts a new registration and returns its record id.
func (r *Repository) Create(ctx context.Context, m Member) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (
			prefix, first_name, last_name, email, mobile, birthday, address1, address2, city, state, pincode,
			country, duration_start, duration_end, course_puc, course_degree, course_pg, course_others, vision,
			profession, other_interests, membership_type, payment_status, payment_amount, payment_mode,
			razorpay_order_id, date_created, membership_valid_upto, alt_user_id, profile_url, id_card_url,
			membership_certificate_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22,
			FALSE, $23, $24, $25, $26, $27, $28, $29, $30, $31
		)
		RETURNING id
	`, m.Prefix, m.FirstName, m.LastName, m.Email, m.Mobile, m.Birthday, m.Address1, m.Address2, m.City, m.State,
		m.Pincode, m.Country, m.DurationStart, m.DurationEnd, m.CoursePUC, m.CourseDegree, m.CoursePG, m.CourseOthers,
		m.Vision, m.Profession, m.OtherInterests, string(m.MembershipType), m.PaymentAmount, m.PaymentMode,
		m.RazorpayOrderID, m.DateCreated, m.ValidUpto, m.AltUserID, m.ProfileURL, m.IDCardURL, m.CertificateURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert member: %w", err)
	}
	return id, nil
}

// MarkPaidOnline records a verified gateway payment. Only the unpaid member
// who registered with orderID is updated.
func (r *Repository) MarkPaidOnline(ctx context.Context, email, orderID, paymentID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		UPDATE users
		SET payment_status = TRUE, razorpay_payment_id = $3
		WHERE lower(email) = lower($1) AND razorpay_order_id = $2 AND payment_status = FALSE
	`, email, orderID, paymentID))
}

// ConfirmManualPayment marks a pending offline payment as received. validUpto
// is only applied when non-nil.
func (r *Repository) ConfirmManualPayment(ctx context.Context, id int64, validUpto *time.Time) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		UPDATE users
		SET payment_status = TRUE, membership_valid_upto = COALESCE($2, membership_valid_upto)
		WHERE id = $1 AND payment_mode = 'M' AND payment_status = FALSE
	`, id, validUpto))
}

// MarkManualPaymentNotified records that payment instructions were sent.
func (r *Repository) MarkManualPaymentNotified(ctx context.Context, email string) (bool, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET manual_payment_notification = TRUE WHERE lower(email) = lower($1)`, email))
}

// Unsubscribe turns off greeting and reminder emails for email.
func (r *Repository) Unsubscribe(ctx context.Context, email string) (bool, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET email_subscription_status = FALSE WHERE lower(email) = lower($1)`, email))
}

// Birthdays lists paid, subscribed members born on the given month and day.
func (r *Repository) Birthdays(ctx context.Context, month time.Month, day int) ([]Member, error) {
	return r.list(ctx, `SELECT `+memberColumns+` FROM users
		WHERE EXTRACT(MONTH FROM birthday) = $1 AND EXTRACT(DAY FROM birthday) = $2
			AND payment_status = TRUE AND email_subscription_status = TRUE
		ORDER BY id`, int(month), day)
}

// ListByTypeAndPayment lists members of a type filtered by payment status.
func (r *Repository) ListByTypeAndPayment(ctx context.Context, t membership.Type, paid bool) ([]Member, error) {
	return r.list(ctx, `SELECT `+memberColumns+` FROM users
		WHERE membership_type = $1 AND payment_status = $2
		ORDER BY id`, string(t), paid)
}

// Search matches members by first name, last name and profession substrings.
func (r *Repository) Search(ctx context.Context, firstName, lastName, profession string) ([]Member, error) {
	return r.list(ctx, `SELECT `+memberColumns+` FROM users
		WHERE first_name ILIKE '%' || $1 || '%'
			AND last_name ILIKE '%' || $2 || '%'
			AND COALESCE(profession, '') ILIKE '%' || $3 || '%'
		ORDER BY id`, firstName, lastName, profession)
}

// ExpiringOn lists annual members whose membership is valid up to date.
func (r *Repository) ExpiringOn(ctx context.Context, date time.Time) ([]Member, error) {
	return r.list(ctx, `SELECT `+memberColumns+` FROM users
		WHERE membership_type = 'Annual' AND membership_valid_upto = $1
		ORDER BY id`, date)
}

// ExpiredOn lists annual members whose membership ended on date and who were
// sent a renewal hash.
func (r *Repository) ExpiredOn(ctx context.Context, date time.Time) ([]Member, error) {
	return r.list(ctx, `SELECT `+memberColumns+` FROM users
		WHERE membership_type = 'Annual' AND membership_valid_upto = $1 AND renewal_hash IS NOT NULL
		ORDER BY id`, date)
}

// SetRenewalHash stores hash for email unless a hash is already outstanding,
// and returns the hash in effect.
func (r *Repository) SetRenewalHash(ctx context.Context, email, hash string) (string, error) {
	var stored string
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET renewal_hash = COALESCE(renewal_hash, $2)
		WHERE lower(email) = lower($1)
		RETURNING renewal_hash
	`, email, hash).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return stored, nil
}

// ClearRenewalHash removes the renewal hash once the renewal was paid.
func (r *Repository) ClearRenewalHash(ctx context.Context, altUserID string) (bool, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET renewal_hash = NULL WHERE alt_user_id = $1`, altUserID))
}

// MarkExpired flags the membership of email as expired.
func (r *Repository) MarkExpired(ctx context.Context, email string) (bool, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET membership_expired = TRUE WHERE lower(email) = lower($1)`, email))
}

// ApplyRenewal commits a renewal, clears the expired flag and consumes the
// renewal hash so the next cycle issues a new link.
func (r *Repository) ApplyRenewal(ctx context.Context, u RenewalUpdate) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		UPDATE users
		SET membership_type = $2,
			payment_amount = $3,
			membership_valid_upto = $4,
			membership_certificate_url = COALESCE($5, membership_certificate_url),
			date_renewed = $6,
			payment_mode = $7,
			payment_status = $8,
			razorpay_order_id = COALESCE($9, razorpay_order_id),
			razorpay_payment_id = COALESCE($10, razorpay_payment_id),
			membership_expired = FALSE,
			renewal_hash = NULL
		WHERE id = $1
	`, u.ID, string(u.MembershipType), u.PaymentAmount, u.ValidUpto, u.CertificateURL, u.DateRenewed,
		u.PaymentMode, u.PaymentStatus, u.RazorpayOrderID, u.RazorpayPaymentID))
}

// Totals aggregates registration counts and collected amounts.
func (r *Repository) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE payment_status),
			COUNT(*) FILTER (WHERE membership_type = 'Lifetime' AND payment_status),
			COUNT(*) FILTER (WHERE membership_type = 'Lifetime' AND NOT payment_status),
			COUNT(*) FILTER (WHERE membership_type = 'Annual' AND payment_status),
			COUNT(*) FILTER (WHERE membership_type = 'Annual' AND NOT payment_status),
			COALESCE(SUM(payment_amount) FILTER (WHERE payment_status), 0),
			COALESCE(SUM(payment_amount) FILTER (WHERE membership_type = 'Lifetime' AND payment_status), 0),
			COALESCE(SUM(payment_amount) FILTER (WHERE membership_type = 'Annual' AND payment_status), 0)
		FROM users
	`).Scan(&t.Registrations, &t.Successful, &t.LifeMembers, &t.PendingLifeMembers, &t.AnnualMembers,
		&t.PendingAnnualMembers, &t.AmountCollected, &t.AmountFromLifeMembers, &t.AmountFromAnnualMembers)
	if err != nil {
		return Totals{}, err
	}
	t.Pending = t.Registrations - t.Successful
	return t, nil
}
