package pg

import "time"

// Config holds PostgreSQL pool settings. The job runner keeps its schedule
// state here, so the pool is small by default.
type Config struct {
	ConnectionString  string        `env:"PG_CONN_URL,required"`                  // ConnectionString is the connection string to the database.
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"4"`      // MaxOpenConns is the maximum number of open connections.
	MinConns          int32         `env:"PG_MIN_CONNS" envDefault:"1"`           // MinConns is the number of connections kept warm.
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"` // HealthCheckPeriod is the period between pool health checks.
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`  // RetryAttempts is the number of connection attempts.
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"2s"` // RetryInterval is the initial pause between attempts; it grows exponentially.

	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"memkeep_schema_migrations"` // MigrationsTable stores the applied migration version.
}
