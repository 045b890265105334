// Package period holds the calendar rules for weeks and biweekly pay periods.
// All dates are calendar days at UTC midnight; the service runs in one fixed locale.
package period

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the ISO date format exchanged with callers and storage.
	DateLayout = "2006-01-02"

	DaysPerWeek      = 7
	DaysPerPayPeriod = 14
)

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a date as "YYYY-MM-DD".
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Truncate drops the time of day, keeping the calendar date as seen in d's location.
func Truncate(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a date by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// StartOfWeek returns the Monday of the week containing d.
func StartOfWeek(d time.Time) time.Time {
	d = Truncate(d)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return AddDays(d, -offset)
}

// IsMonday reports whether d is a valid week key.
func IsMonday(d time.Time) bool {
	return d.Weekday() == time.Monday
}

// WeekEnd returns the Sunday closing the week that starts on weekStart.
func WeekEnd(weekStart time.Time) time.Time {
	return AddDays(weekStart, DaysPerWeek-1)
}

// WeekDays lists the seven dates Monday..Sunday starting at weekStart.
func WeekDays(weekStart time.Time) []time.Time {
	days := make([]time.Time, DaysPerWeek)
	for i := range days {
		days[i] = AddDays(weekStart, i)
	}
	return days
}

// PayPeriodEnd returns the last day of the 14-day period starting at start.
func PayPeriodEnd(start time.Time) time.Time {
	return AddDays(start, DaysPerPayPeriod-1)
}

// Contains reports whether d lies in the inclusive range [start, end].
func Contains(start, end, d time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

// Overlaps reports whether the inclusive ranges [aStart, aEnd] and [bStart, bEnd] share a day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}
