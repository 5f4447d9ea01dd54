package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/memkeep/pkg/calendar"
)

// Schedule determines when a recurring job fires next.
// Next must return an instant strictly after from.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

// intervalSchedule fires at fixed intervals
type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return calendar.UTC(from).Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

// dailySchedule fires once per day at the given UTC wall time
type dailySchedule struct {
	hour   int
	minute int
}

func (s dailySchedule) Next(from time.Time) time.Time {
	from = calendar.UTC(from)
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d UTC", s.hour, s.minute)
}

// monthlySchedule fires once per month on the given day at the given UTC wall time
type monthlySchedule struct {
	day    int
	hour   int
	minute int
}

func (s monthlySchedule) Next(from time.Time) time.Time {
	from = calendar.UTC(from)

	// Day 31 in a 30-day month fires on the 30th instead of being skipped.
	d := calendar.DateClamped(from.Year(), from.Month(), s.day)
	next := time.Date(d.Year(), d.Month(), d.Day(), s.hour, s.minute, 0, 0, time.UTC)

	if !next.After(from) {
		d = calendar.DateClamped(from.Year(), from.Month()+1, s.day)
		next = time.Date(d.Year(), d.Month(), d.Day(), s.hour, s.minute, 0, 0, time.UTC)
	}
	return next
}

func (s monthlySchedule) String() string {
	return fmt.Sprintf("monthly on day %d at %02d:%02d UTC", s.day, s.hour, s.minute)
}

// cronSchedule adapts a parsed cron expression
type cronSchedule struct {
	expr  string
	inner cron.Schedule
}

func (s cronSchedule) Next(from time.Time) time.Time {
	return s.inner.Next(calendar.UTC(from)).UTC()
}

func (s cronSchedule) String() string {
	return fmt.Sprintf("cron %q UTC", s.expr)
}

// Every creates a schedule that fires at fixed intervals.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		panic("schedule: interval must be positive")
	}
	return intervalSchedule{every: d}
}

// DailyAt creates a schedule that fires daily at the given UTC time.
func DailyAt(hour, minute int) Schedule {
	return dailySchedule{hour: hour, minute: minute}
}

// Daily fires every day at 00:00 UTC.
func Daily() Schedule {
	return dailySchedule{}
}

// MonthlyOn creates a schedule that fires monthly on the given day at the given UTC time.
// Days past the end of a month are clamped to its last day.
func MonthlyOn(day, hour, minute int) Schedule {
	return monthlySchedule{day: day, hour: hour, minute: minute}
}

// Monthly fires on the first day of every month at 00:00 UTC.
func Monthly() Schedule {
	return monthlySchedule{day: 1}
}

// Cron parses a standard five-field cron expression (or a descriptor such as
// "@daily") evaluated in UTC.
func Cron(expr string) (Schedule, error) {
	if expr == "" {
		return nil, ErrEmptyExpression
	}
	// Pin evaluation to UTC regardless of the process time zone.
	inner, err := cron.ParseStandard("CRON_TZ=UTC " + expr)
	if err != nil {
		return nil, errors.Join(ErrInvalidExpression, err)
	}
	return cronSchedule{expr: expr, inner: inner}, nil
}

// MustCron is Cron for static expressions; it panics on parse errors.
func MustCron(expr string) Schedule {
	s, err := Cron(expr)
	if err != nil {
		panic(err)
	}
	return s
}
