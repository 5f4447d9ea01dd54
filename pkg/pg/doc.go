// Package pg wraps pgx/v5 pool setup and goose migrations.
//
// The job runner persists its next-run bookkeeping in PostgreSQL so schedules
// survive restarts. Connect retries with exponential backoff
// (github.com/cenkalti/backoff/v4), Migrate applies migrations embedded by the
// owning package, and Healthcheck exposes a probe for the daemon.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := jobrunner.MigratePostgres(ctx, pool, cfg, log); err != nil {
//		return err
//	}
package pg
