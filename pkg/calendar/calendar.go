package calendar

import (
	"math"
	"time"
)

// Day is a fixed 24 hour span. All arithmetic in this package runs in UTC,
// so daylight saving transitions never make a day shorter or longer.
const Day = 24 * time.Hour

// Clock returns the current time. Services accept a Clock so tests can pin time.
type Clock func() time.Time

// SystemClock returns the wall clock time in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Fixed returns a Clock that always reports t (normalized to UTC).
func Fixed(t time.Time) Clock {
	t = UTC(t)
	return func() time.Time { return t }
}

// UTC normalizes t to UTC. Values carrying a local offset are converted,
// never reinterpreted, so the instant is preserved.
func UTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// UTCPtr is UTC for optional timestamps.
func UTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := UTC(*t)
	return &u
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateClamped builds a UTC midnight date, clamping day into the valid range of
// the month instead of overflowing: Feb 29 2023 becomes Feb 28 2023.
func DateClamped(year int, month time.Month, day int) time.Time {
	// Normalize month overflow first (month 13 is January of the next year).
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	year, month = first.Year(), first.Month()

	day = max(1, min(day, DaysInMonth(year, month)))
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// FirstOfMonth returns midnight UTC of the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	t = UTC(t)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// FirstOfNextMonth returns midnight UTC of the first day of the month after t.
func FirstOfNextMonth(t time.Time) time.Time {
	return AddMonths(FirstOfMonth(t), 1)
}

// AddMonths adds n calendar months to t keeping the time of day.
// Unlike time.AddDate the day is clamped to the last valid day of the target
// month: Jan 31 + 1 month is Feb 28 (or Feb 29 in leap years), not Mar 3.
func AddMonths(t time.Time, n int) time.Time {
	t = UTC(t)
	target := DateClamped(t.Year(), t.Month()+time.Month(n), t.Day())
	return time.Date(target.Year(), target.Month(), target.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// AddDays adds n whole days to t in UTC.
func AddDays(t time.Time, n int) time.Time {
	return UTC(t).AddDate(0, 0, n)
}

// SameMonth reports whether a and b fall into the same UTC calendar month.
func SameMonth(a, b time.Time) bool {
	a, b = UTC(a), UTC(b)
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// BeforeMonthOf reports whether t falls into a calendar month earlier than ref's.
// A zero t is always considered stale.
func BeforeMonthOf(t, ref time.Time) bool {
	if t.IsZero() {
		return true
	}
	return UTC(t).Before(FirstOfMonth(ref))
}

// DaysUntilCeil returns the number of days from now until deadline, rounding
// partial days up. Returns 0 once the deadline has passed.
func DaysUntilCeil(now, deadline time.Time) int {
	remaining := UTC(deadline).Sub(UTC(now))
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(float64(remaining) / float64(Day)))
}
