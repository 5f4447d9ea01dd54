// Package schedule provides the recurrence rules used by the job runner.
//
// All schedules evaluate in UTC: the input instant is normalized first and the
// returned instant is always a UTC time. Fixed rules (Daily, DailyAt, Monthly,
// MonthlyOn, Every) cover the built-in jobs; Cron accepts a five-field cron
// expression through github.com/robfig/cron/v3 so operators can override a job
// schedule from configuration.
//
// # Usage
//
//	monthly := schedule.Monthly()             // day 1, 00:00 UTC
//	daily := schedule.DailyAt(0, 0)           // every day, 00:00 UTC
//	custom, err := schedule.Cron("30 2 * * *") // every day, 02:30 UTC
//
//	next := daily.Next(time.Now())
//
// Monthly rules clamp to the last day of short months, so MonthlyOn(31, 0, 0)
// fires on Feb 28 (or 29) rather than skipping February.
package schedule
