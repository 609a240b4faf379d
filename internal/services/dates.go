package services

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	isoLayout   = "2006-01-02"
	dmyLayout   = "02/01/2006"
	clockLayout = "15:04"
)

// ParseDate accepts YYYY-MM-DD first and DD/MM/YYYY second. The result is a
// UTC midnight; ok is false for empty or malformed input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{isoLayout, dmyLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseClock validates a 24h HH:MM value and returns it in canonical form.
func ParseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return "", false
	}
	return t.Format(clockLayout), true
}

// Day truncates t to its calendar day as a UTC midnight, reading the
// calendar fields in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar day in loc.
func Today(loc *time.Location) time.Time {
	return Day(time.Now().In(loc))
}

// StartOfWeek returns the Monday of t's week.
func StartOfWeek(t time.Time) time.Time {
	t = Day(t)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func DateValue(t time.Time) datatypes.Date {
	return datatypes.Date(Day(t))
}

// DateOf reverses DateValue. Stored dates are read back as UTC midnights.
func DateOf(d datatypes.Date) time.Time {
	return Day(time.Time(d))
}

func ISODate(t time.Time) string {
	return t.Format(isoLayout)
}

func DisplayDate(t time.Time) string {
	return t.Format(dmyLayout)
}
