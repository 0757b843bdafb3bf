package membership

import "time"

// State is the lifecycle position of a membership as seen on a given day.
type State string

const (
	Pending      State = "pending"
	Paid         State = "paid"
	Renewed      State = "renewed"
	ExpiringSoon State = "expiring_soon"
	Expired      State = "expired"
)

// DefaultExpiringWindow is the number of days before expiry a membership is reported as expiring.
const DefaultExpiringWindow = 30

// Snapshot carries the persisted fields the lifecycle depends on.
type Snapshot struct {
	Type          Type
	PaymentStatus bool
	ValidUpto     *time.Time
	Expired       bool
	DateRenewed   *time.Time
}

// Derive computes the membership state for today. Lifetime memberships never
// leave Paid once payment is recorded.
func Derive(s Snapshot, today time.Time, window int) State {
	if !s.PaymentStatus {
		return Pending
	}
	if s.Type != Annual || s.ValidUpto == nil {
		return Paid
	}

	days := DaysBetween(today, *s.ValidUpto)
	switch {
	case s.Expired || days < 0:
		return Expired
	case days <= window:
		return ExpiringSoon
	case s.DateRenewed != nil:
		return Renewed
	default:
		return Paid
	}
}
