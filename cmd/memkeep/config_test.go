package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/memkeep/pkg/schedule"
	"github.com/dmitrymomot/memkeep/svc/subscription"
)

func TestAppConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := appConfig{StateStore: "memory"}
	require.NoError(t, cfg.Validate())

	sched, err := cfg.schedules()
	require.NoError(t, err)
	assert.Nil(t, sched.monthly)
	assert.Nil(t, sched.daily)

	cfg.StateStore = "sqlite"
	assert.ErrorIs(t, cfg.Validate(), errUnknownStateStore)

	cfg = appConfig{StateStore: "postgres", DailyCron: "not a cron"}
	assert.ErrorIs(t, cfg.Validate(), schedule.ErrInvalidExpression)
}

func TestAppConfig_Schedules(t *testing.T) {
	t.Parallel()

	cfg := appConfig{MonthlyCron: "0 3 1 * *", DailyCron: "@daily"}
	sched, err := cfg.schedules()
	require.NoError(t, err)

	from := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC), sched.monthly.Next(from))
	assert.Equal(t, time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC), sched.daily.Next(from))
}

func TestLoadPolicy(t *testing.T) {
	t.Parallel()

	p, err := loadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, subscription.DefaultPolicy(), p)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grace_period_days: 3\n"), 0o600))
	p, err = loadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 3, p.GracePeriodDays)

	_, err = loadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, subscription.ErrInvalidPolicy)
}
