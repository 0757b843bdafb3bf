package member

import (
	"errors"
	"time"

	"alumni/internal/membership"
)

// Payment modes.
const (
	PaymentOnline = "O"
	PaymentManual = "M"
)

var (
	// ErrNotFound is returned when no member matches a lookup.
	ErrNotFound = errors.New("member not found")
	// ErrEmailExists is returned when a registration reuses an email.
	ErrEmailExists = errors.New("a registration already exists for this email")
	// ErrPhotoUpload wraps failures of the image CDN during registration.
	ErrPhotoUpload = errors.New("profile photo upload failed")
	// ErrNotManualPayment is returned when manual payment details are requested
	// for a member who pays online or has already paid.
	ErrNotManualPayment = errors.New("no pending manual payment")
	// ErrOrderRequired is returned when an online registration carries no gateway order.
	ErrOrderRequired = errors.New("razorpay order id is required for online payment")
	// ErrPaymentMismatch is returned when a verified payment does not settle the
	// member's own pending order for the membership fee.
	ErrPaymentMismatch = errors.New("payment does not match the pending order")
	// ErrRenewalMismatch is returned when a renewal commit disagrees with the
	// amount or validity the server computed.
	ErrRenewalMismatch = errors.New("renewal does not match the proposed terms")
)

// Member is a registered alumnus.
type Member struct {
	ID                        int64
	Prefix                    string
	FirstName                 string
	LastName                  string
	Email                     string
	Mobile                    *string
	Birthday                  time.Time
	Address1                  string
	Address2                  *string
	City                      string
	State                     string
	Pincode                   string
	Country                   string
	DurationStart             int
	DurationEnd               int
	CoursePUC                 *string
	CourseDegree              *string
	CoursePG                  *string
	CourseOthers              *string
	Vision                    *string
	Profession                *string
	OtherInterests            *string
	MembershipType            membership.Type
	PaymentStatus             bool
	PaymentAmount             float64
	PaymentMode               string
	RazorpayOrderID           *string
	RazorpayPaymentID         *string
	DateCreated               time.Time
	ValidUpto                 *time.Time
	Expired                   bool
	DateRenewed               *time.Time
	RenewalHash               *string
	AltUserID                 string
	ProfileURL                *string
	IDCardURL                 *string
	CertificateURL            *string
	ManualPaymentNotification bool
	EmailSubscribed           bool
}

// MembershipID is the public identifier printed on cards and certificates.
func (m Member) MembershipID() string {
	return membership.ID(m.MembershipType, m.DurationEnd, m.ID)
}

// FullName is the salutation form "Prefix. First Last".
func (m Member) FullName() string {
	return m.Prefix + ". " + m.FirstName + " " + m.LastName
}

// Name is "First Last".
func (m Member) Name() string {
	return m.FirstName + " " + m.LastName
}

// Snapshot exposes the lifecycle fields of m.
func (m Member) Snapshot() membership.Snapshot {
	return membership.Snapshot{
		Type:          m.MembershipType,
		PaymentStatus: m.PaymentStatus,
		ValidUpto:     m.ValidUpto,
		Expired:       m.Expired,
		DateRenewed:   m.DateRenewed,
	}
}

// Registration is the input collected by the registration form.
type Registration struct {
	Prefix          string
	FirstName       string
	LastName        string
	Email           string
	Mobile          string
	Birthday        time.Time
	Address1        string
	Address2        string
	City            string
	State           string
	Pincode         string
	Country         string
	DurationStart   int
	DurationEnd     int
	CoursePUC       string
	CourseDegree    string
	CoursePG        string
	CourseOthers    string
	Vision          string
	Profession      string
	OtherInterests  string
	MembershipType  membership.Type
	PaymentMode     string
	RazorpayOrderID string
	Photo           []byte
	PhotoName       string
}

// PaymentProof is a gateway payment whose signature has been verified.
// Amount is the order amount reported by the gateway, in paise.
type PaymentProof struct {
	OrderID   string
	PaymentID string
	Amount    int64
}

// RenewalUpdate is the committed result of a renewal. A manual renewal is
// stored unpaid until an admin confirms it.
type RenewalUpdate struct {
	ID                int64
	MembershipType    membership.Type
	PaymentAmount     float64
	ValidUpto         time.Time
	CertificateURL    *string
	DateRenewed       time.Time
	PaymentMode       string
	PaymentStatus     bool
	RazorpayOrderID   *string
	RazorpayPaymentID *string
}

// RenewalPreview is what a member sees before paying for a renewal.
type RenewalPreview struct {
	Member  Member
	Current time.Time
	membership.Renewal
}

// Totals aggregates the dashboard counters.
type Totals struct {
	Registrations           int64
	Successful              int64
	Pending                 int64
	LifeMembers             int64
	PendingLifeMembers      int64
	AnnualMembers           int64
	PendingAnnualMembers    int64
	AmountCollected         float64
	AmountFromLifeMembers   float64
	AmountFromAnnualMembers float64
}
