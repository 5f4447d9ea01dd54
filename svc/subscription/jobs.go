package subscription

import (
	"context"
	"time"

	"github.com/dmitrymomot/memkeep/pkg/jobrunner"
	"github.com/dmitrymomot/memkeep/pkg/schedule"
)

const (
	JobMonthlySummaryReset = "monthly_summary_reset"
	JobDailyExpiryCheck    = "daily_expiry_check"
)

// Jobs returns the recurring jobs of the subscription engine. Nil schedules
// fall back to day 1 00:00 UTC for the monthly reset and 00:00 UTC for the
// daily expiry check.
func (s *Service) Jobs(monthly, daily schedule.Schedule) []jobrunner.Job {
	if monthly == nil {
		monthly = schedule.Monthly()
	}
	if daily == nil {
		daily = schedule.Daily()
	}

	return []jobrunner.Job{
		{
			ID:       JobMonthlySummaryReset,
			Name:     "Monthly summary usage reset",
			Schedule: monthly,
			Timeout:  15 * time.Minute,
			Run: func(ctx context.Context) (any, error) {
				return s.ResetMonthlySummaries(ctx)
			},
		},
		{
			ID:       JobDailyExpiryCheck,
			Name:     "Daily expiry and grace transition",
			Schedule: daily,
			Timeout:  30 * time.Minute,
			Run: func(ctx context.Context) (any, error) {
				return s.ProcessExpirations(ctx)
			},
		},
	}
}
