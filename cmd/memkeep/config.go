package main

import (
	"errors"
	"time"

	"github.com/dmitrymomot/memkeep/pkg/schedule"
)

// appConfig is the process-level configuration. Infrastructure packages load
// their own Config structs.
type appConfig struct {
	Name            string        `env:"APP_NAME" envDefault:"memkeep"`
	Env             string        `env:"APP_ENV" envDefault:"development"`
	LogLevel        string        `env:"APP_LOG_LEVEL"` // Overrides the environment preset when set.
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	HealthcheckInterval time.Duration `env:"APP_HEALTHCHECK_INTERVAL" envDefault:"1m"` // Zero disables the periodic check.
	HealthcheckTimeout  time.Duration `env:"APP_HEALTHCHECK_TIMEOUT" envDefault:"5s"`

	SubscriptionsCollection string        `env:"SUBSCRIPTION_COLLECTION" envDefault:"subscriptions"`
	PolicyFile              string        `env:"SUBSCRIPTION_POLICY_FILE"`
	StoreTimeout            time.Duration `env:"SUBSCRIPTION_STORE_TIMEOUT" envDefault:"5s"`
	WriteRetries            uint64        `env:"SUBSCRIPTION_WRITE_RETRIES" envDefault:"2"`
	WriteRetryDelay         time.Duration `env:"SUBSCRIPTION_WRITE_RETRY_DELAY" envDefault:"200ms"`

	EventsCollection    string        `env:"ANALYTICS_COLLECTION" envDefault:"subscription_events"`
	EventsIndex         string        `env:"ANALYTICS_INDEX" envDefault:"subscription-events"`
	MemoriesIndex       string        `env:"MEMORIES_INDEX" envDefault:"memories"`
	EventsBufferSize    int           `env:"ANALYTICS_BUFFER_SIZE" envDefault:"1000"`
	EventsBatchSize     int           `env:"ANALYTICS_BATCH_SIZE" envDefault:"100"`
	EventsFlushInterval time.Duration `env:"ANALYTICS_FLUSH_INTERVAL" envDefault:"2s"`

	Workers        int           `env:"SCHEDULER_WORKERS" envDefault:"2"`
	TickInterval   time.Duration `env:"SCHEDULER_TICK_INTERVAL" envDefault:"1s"`
	MisfireGrace   time.Duration `env:"SCHEDULER_MISFIRE_GRACE" envDefault:"5m"`
	StateStore     string        `env:"SCHEDULER_STATE_STORE" envDefault:"postgres"` // postgres or memory
	LockEnabled    bool          `env:"SCHEDULER_LOCK_ENABLED" envDefault:"false"`
	LockTTL        time.Duration `env:"SCHEDULER_LOCK_TTL" envDefault:"1h"`
	LockPrefix     string        `env:"SCHEDULER_LOCK_PREFIX" envDefault:"memkeep:jobs:"`
	MonthlyCron    string        `env:"SCHEDULER_MONTHLY_RESET_CRON"`
	DailyCron      string        `env:"SCHEDULER_DAILY_EXPIRY_CRON"`
	ForceOnStartup []string      `env:"SCHEDULER_FORCE_ON_STARTUP" envSeparator:","`
}

var errUnknownStateStore = errors.New("SCHEDULER_STATE_STORE must be postgres or memory")

func (c *appConfig) Validate() error {
	if c.StateStore != "postgres" && c.StateStore != "memory" {
		return errUnknownStateStore
	}
	if _, err := c.schedules(); err != nil {
		return err
	}
	return nil
}

// jobSchedules holds the optional cron overrides. Nil means the default.
type jobSchedules struct {
	monthly schedule.Schedule
	daily   schedule.Schedule
}

func (c *appConfig) schedules() (jobSchedules, error) {
	var s jobSchedules
	var err error
	if c.MonthlyCron != "" {
		if s.monthly, err = schedule.Cron(c.MonthlyCron); err != nil {
			return s, err
		}
	}
	if c.DailyCron != "" {
		if s.daily, err = schedule.Cron(c.DailyCron); err != nil {
			return s, err
		}
	}
	return s, nil
}
