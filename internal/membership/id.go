package membership

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Type is the membership classification chosen at registration.
type Type string

const (
	Lifetime Type = "Lifetime"
	Annual   Type = "Annual"
)

const idPrefix = "MESAA"

// ErrInvalidID is returned when a membership id does not match MESAA-{LM|OM}-YY-N.
var ErrInvalidID = errors.New("invalid membership id")

// Valid reports whether t is a known membership type.
func (t Type) Valid() bool {
	return t == Lifetime || t == Annual
}

// Abbreviation returns the code used inside membership ids.
func (t Type) Abbreviation() string {
	if t == Lifetime {
		return "LM"
	}
	return "OM"
}

// ID formats the public membership id for a record: MESAA-{LM|OM}-{YY}-{NN}.
// Record ids below 10 are padded to two digits.
func ID(t Type, cohortEnd int, recordID int64) string {
	year := strconv.Itoa(cohortEnd)
	if len(year) > 2 {
		year = year[len(year)-2:]
	}
	num := strconv.FormatInt(recordID, 10)
	if recordID >= 0 && recordID < 10 {
		num = "0" + num
	}
	return fmt.Sprintf("%s-%s-%s-%s", idPrefix, t.Abbreviation(), year, num)
}

// ParseID extracts the membership type and record id from a formatted membership id.
func ParseID(s string) (Type, int64, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 || !strings.EqualFold(parts[0], idPrefix) {
		return "", 0, ErrInvalidID
	}

	var t Type
	switch strings.ToUpper(parts[1]) {
	case "LM":
		t = Lifetime
	case "OM":
		t = Annual
	default:
		return "", 0, ErrInvalidID
	}

	if _, err := strconv.Atoi(parts[2]); err != nil {
		return "", 0, ErrInvalidID
	}
	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, ErrInvalidID
	}
	return t, id, nil
}
