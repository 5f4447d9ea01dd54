package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/memkeep/pkg/schedule"
)

func TestDailySchedule(t *testing.T) {
	t.Parallel()

	s := schedule.Daily()

	t.Run("before midnight fires at next midnight", func(t *testing.T) {
		t.Parallel()
		from := time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("exactly at midnight fires next day", func(t *testing.T) {
		t.Parallel()
		from := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("local input is evaluated in UTC", func(t *testing.T) {
		t.Parallel()
		loc := time.FixedZone("UTC+3", 3*60*60)
		// 02:00 +03:00 on May 11 is 23:00 UTC on May 10.
		from := time.Date(2024, 5, 11, 2, 0, 0, 0, loc)
		assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("custom hour", func(t *testing.T) {
		t.Parallel()
		from := time.Date(2024, 5, 10, 1, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2024, 5, 10, 2, 30, 0, 0, time.UTC), schedule.DailyAt(2, 30).Next(from))
	})
}

func TestMonthlySchedule(t *testing.T) {
	t.Parallel()

	t.Run("first of month", func(t *testing.T) {
		t.Parallel()
		s := schedule.Monthly()
		assert.Equal(t,
			time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			s.Next(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t,
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			s.Next(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)))
	})

	t.Run("day 31 clamps in february", func(t *testing.T) {
		t.Parallel()
		s := schedule.MonthlyOn(31, 0, 0)
		assert.Equal(t,
			time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
			s.Next(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t,
			time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			s.Next(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("day 29 in non-leap february", func(t *testing.T) {
		t.Parallel()
		s := schedule.MonthlyOn(29, 0, 0)
		assert.Equal(t,
			time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
			s.Next(time.Date(2023, 1, 29, 0, 0, 0, 0, time.UTC)))
	})
}

func TestCronSchedule(t *testing.T) {
	t.Parallel()

	t.Run("parses standard expression in UTC", func(t *testing.T) {
		t.Parallel()
		s, err := schedule.Cron("0 0 1 * *")
		require.NoError(t, err)

		loc := time.FixedZone("UTC-7", -7*60*60)
		from := time.Date(2024, 4, 30, 20, 0, 0, 0, loc) // 2024-05-01 03:00 UTC
		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), s.Next(from))
		assert.Contains(t, s.String(), "0 0 1 * *")
	})

	t.Run("descriptor", func(t *testing.T) {
		t.Parallel()
		s, err := schedule.Cron("@daily")
		require.NoError(t, err)
		assert.Equal(t,
			time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC),
			s.Next(time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)))
	})

	t.Run("rejects invalid expression", func(t *testing.T) {
		t.Parallel()
		_, err := schedule.Cron("not a cron")
		assert.ErrorIs(t, err, schedule.ErrInvalidExpression)

		_, err = schedule.Cron("")
		assert.ErrorIs(t, err, schedule.ErrEmptyExpression)
	})
}

func TestEvery(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, from.Add(time.Minute), schedule.Every(time.Minute).Next(from))
	assert.Panics(t, func() { schedule.Every(0) })
}
