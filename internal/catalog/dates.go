package catalog

import (
	"strings"
	"time"

	"bookameal/internal/apperr"
)

// DateLayout is how menu dates are stored and returned
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar day. A timestamp's own offset decides the day; the time of day is
// dropped.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, apperr.Validation("invalid date %q, expected YYYY-MM-DD", s)
}

// NormalizeDate parses s and formats it back as YYYY-MM-DD
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}
