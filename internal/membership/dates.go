package membership

import "time"

// Date layouts used in requests and responses.
const (
	DateLayout    = "2006-01-02"
	DisplayLayout = "02-Jan-2006"
	CardLayout    = "02-01-2006"
)

// Clock reports the current calendar date in the association's time zone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock returns a wall clock for loc.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

// Today returns the current date at midnight UTC.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return Date(now().In(loc))
}

// Date truncates t to its calendar date, normalised to midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from from to to.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}

// AddYears adds n years, clamping to the last day of the month (29 Feb + 1y = 28 Feb).
func AddYears(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	last := time.Date(y+n, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if d > last {
		d = last
	}
	return time.Date(y+n, m, d, 0, 0, 0, 0, time.UTC)
}

// Renewal is a proposed extension of an annual membership.
type Renewal struct {
	DaysUntilExpiry int
	NewValidUpto    time.Time
}

// ProposeRenewal extends a membership that has not yet lapsed by one year from
// its current validity, otherwise by one year from today.
func ProposeRenewal(validUpto, today time.Time) Renewal {
	days := DaysBetween(today, validUpto)
	next := AddYears(Date(today), 1)
	if days > 0 {
		next = AddYears(Date(validUpto), 1)
	}
	return Renewal{DaysUntilExpiry: days, NewValidUpto: next}
}
