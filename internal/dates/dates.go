// Package dates normalises the date strings that reach the registration desk.
//
// Birth dates arrive in two conventions: DD-MM-YYYY from the external form
// builder and ISO YYYY-MM-DD from the admin client. The store keeps one
// representation (YYYY-MM-DD); everything else is converted at the edges.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ISODate is the storage layout for calendar dates.
const ISODate = "2006-01-02"

// ErrInvalidDate is returned for strings that match none of the known layouts
// or that name a day that does not exist (31-02-2000).
var ErrInvalidDate = errors.New("dates: invalid date")

var calendarLayouts = []string{
	ISODate,
	"02-01-2006",
	"02.01.2006",
	"02/01/2006",
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseCalendarDate parses a calendar date in any of the accepted layouts.
// An RFC 3339 timestamp is accepted too; only its date part is kept.
func ParseCalendarDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range calendarLayouts {
		// time.Parse rejects out-of-range days, so 31-02-2000 fails here.
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// NormalizeCalendarDate converts s to YYYY-MM-DD. Empty input stays empty.
func NormalizeCalendarDate(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	t, err := ParseCalendarDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(ISODate), nil
}

// NormalizeLenient is the read-path variant of NormalizeCalendarDate: values
// that cannot be parsed are returned unchanged.
func NormalizeLenient(s string) string {
	out, err := NormalizeCalendarDate(s)
	if err != nil {
		return s
	}
	return out
}

// ParseTimestamp parses an organizer-entered timestamp. Plain calendar dates
// are accepted and mean midnight UTC. Layouts without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := ParseCalendarDate(s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// NormalizeTimestamp converts s to RFC 3339 in UTC. Empty input stays empty.
func NormalizeTimestamp(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(time.RFC3339), nil
}

// NormalizeDateOrTimestamp is for fields that hold either a plain day or a
// moment (payment and letter dates). Calendar dates become YYYY-MM-DD,
// anything with a time part becomes RFC 3339 in UTC. Empty input stays empty.
func NormalizeDateOrTimestamp(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range calendarLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate), nil
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
