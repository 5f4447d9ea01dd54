package jobrunner

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/memkeep/pkg/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigratePostgres creates the job state table.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
}

// DBTX is the subset of pgx used by PostgresStateStore. Both *pgxpool.Pool
// and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStateStore stores next runs in the jobrunner_state table.
type PostgresStateStore struct {
	db DBTX
}

// NewPostgresStateStore panics if db is nil.
func NewPostgresStateStore(db DBTX) *PostgresStateStore {
	if db == nil {
		panic("jobrunner: postgres connection cannot be nil")
	}
	return &PostgresStateStore{db: db}
}

const (
	loadStateQuery = `SELECT next_run FROM jobrunner_state WHERE job_id = $1`
	saveStateQuery = `
INSERT INTO jobrunner_state (job_id, next_run, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (job_id) DO UPDATE SET next_run = EXCLUDED.next_run, updated_at = now()`
)

func (s *PostgresStateStore) Load(ctx context.Context, jobID string) (time.Time, bool, error) {
	var next time.Time
	err := s.db.QueryRow(ctx, loadStateQuery, jobID).Scan(&next)
	if pg.IsNotFoundError(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Join(ErrStateStore, err)
	}
	return next.UTC(), true, nil
}

func (s *PostgresStateStore) Save(ctx context.Context, jobID string, nextRun time.Time) error {
	if _, err := s.db.Exec(ctx, saveStateQuery, jobID, nextRun.UTC()); err != nil {
		return errors.Join(ErrStateStore, err)
	}
	return nil
}
