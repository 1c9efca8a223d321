package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Date formats in play: DisplayDate is what operators and notifications use,
// DBDate is what order_list stores. Parsing accepts both plus ISO.
const (
	DisplayDate = "02/01/2006"
	DBDate      = "2006/01/02"
	isoDate     = "2006-01-02"
)

var ErrBadDate = errors.New("unparseable date")

var dateLayouts = []string{DisplayDate, isoDate, DBDate}

// ParseDate parses a stored or user-entered date string. An empty or
// malformed value is a hard failure; callers must never substitute a
// default expiry.
func ParseDate(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, ErrBadDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, value)
}

// FlatExpiry is the renewal-path strategy: the new expiry is simply the
// effective start plus the day count, no calendar decomposition.
func FlatExpiry(start time.Time, days int) time.Time {
	return start.AddDate(0, 0, days)
}

// CalendarExpiry is the order-creation strategy: the day count is decomposed
// into years (365), months (30) and leftover days, added with calendar
// semantics, minus one day so that a 30-day order started on day X ends
// exactly one period later. Month and year additions clamp to the end of
// the target month (Jan 31 + 1 month = Feb 28) so existing stored dates
// stay consistent.
func CalendarExpiry(start time.Time, days int) time.Time {
	years := days / 365
	rem := days % 365
	months := rem / 30
	extraDays := rem%30 - 1

	t := addMonthsClamped(start, years*12+months)
	return t.AddDate(0, 0, extraDays)
}

// RenewalStart is the effective start of a renewed period: the day after the
// old expiry, so periods are contiguous with no gap and no overlap.
func RenewalStart(oldExpiry time.Time) time.Time {
	return oldExpiry.AddDate(0, 0, 1)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	m += time.Month(months)
	for m > 12 {
		m -= 12
		y++
	}
	for m < 1 {
		m += 12
		y--
	}
	if last := daysInMonth(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
