// Command memkeep runs the subscription engine's background jobs: the
// monthly summary reset and the daily expiry check.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	opensearchgo "github.com/opensearch-project/opensearch-go/v2"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/memkeep/pkg/analytics"
	"github.com/dmitrymomot/memkeep/pkg/config"
	"github.com/dmitrymomot/memkeep/pkg/jobrunner"
	"github.com/dmitrymomot/memkeep/pkg/logger"
	"github.com/dmitrymomot/memkeep/pkg/mongo"
	"github.com/dmitrymomot/memkeep/pkg/opensearch"
	"github.com/dmitrymomot/memkeep/pkg/pg"
	"github.com/dmitrymomot/memkeep/pkg/redis"
	"github.com/dmitrymomot/memkeep/svc/memory"
	"github.com/dmitrymomot/memkeep/svc/subscription"
)

func main() {
	if err := run(); err != nil {
		slog.Error("memkeep stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	logOpts := []logger.Option{logger.WithEnvironment(cfg.Env, cfg.Name)}
	if cfg.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevelName(cfg.LogLevel))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := loadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}

	var mongoCfg mongo.Config
	if err := config.Load(&mongoCfg); err != nil {
		return err
	}
	db, err := mongo.NewWithDatabase(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	var probes healthProbes
	probes.add("mongo", mongo.Healthcheck(db.Client()))

	store := subscription.NewMongoStore(db.Collection(cfg.SubscriptionsCollection))
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	var osCfg opensearch.Config
	if err := config.Load(&osCfg); err != nil {
		return err
	}
	var search *opensearchgo.Client
	if osCfg.Enabled() {
		if search, err = opensearch.New(ctx, osCfg); err != nil {
			return err
		}
		probes.add("opensearch", opensearch.Healthcheck(search))
		if err := opensearch.EnsureIndex(ctx, search, osCfg.Index(cfg.EventsIndex), analytics.EventsIndexMapping); err != nil {
			return err
		}
		if err := memory.NewOpenSearchRepository(search, osCfg.Index(cfg.MemoriesIndex)).EnsureIndex(ctx); err != nil {
			return err
		}
	}

	events := analytics.NewAsyncWriter(eventSink(db.Collection(cfg.EventsCollection), search, osCfg, cfg), analytics.AsyncOptions{
		BufferSize:    cfg.EventsBufferSize,
		BatchSize:     cfg.EventsBatchSize,
		FlushInterval: cfg.EventsFlushInterval,
		Logger:        log.With(logger.Component("analytics")),
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := events.Close(closeCtx); err != nil {
			log.Warn("analytics queue not fully drained", logger.Error(err))
		}
	}()

	subs := subscription.NewService(store,
		subscription.WithPolicy(policy),
		subscription.WithLogger(log.With(logger.Component("subscription"))),
		subscription.WithEmitter(analytics.NewEmitter(analytics.MultiSink{events, analytics.NewLogSink(log)},
			analytics.WithEmitterLogger(log),
		)),
		subscription.WithStoreTimeout(cfg.StoreTimeout),
		subscription.WithWriteRetries(cfg.WriteRetries, cfg.WriteRetryDelay),
	)

	runnerOpts := []jobrunner.Option{
		jobrunner.WithWorkers(cfg.Workers),
		jobrunner.WithTickInterval(cfg.TickInterval),
		jobrunner.WithMisfireGrace(cfg.MisfireGrace),
		jobrunner.WithLogger(log.With(logger.Component("jobrunner"))),
	}

	if cfg.StateStore == "postgres" {
		pool, err := connectPostgres(ctx, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		probes.add("postgres", pg.Healthcheck(pool))
		runnerOpts = append(runnerOpts, jobrunner.WithStateStore(jobrunner.NewPostgresStateStore(pool)))
	}

	if cfg.LockEnabled {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		rdb, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		probes.add("redis", redis.Healthcheck(rdb))
		runnerOpts = append(runnerOpts, jobrunner.WithLocker(jobrunner.NewRedisLocker(rdb, cfg.LockPrefix), cfg.LockTTL))
	}

	if err := probes.check(ctx, cfg.HealthcheckTimeout); err != nil {
		return err
	}

	runner := jobrunner.New(runnerOpts...)
	sched, err := cfg.schedules()
	if err != nil {
		return err
	}
	if err := runner.Register(subs.Jobs(sched.monthly, sched.daily)...); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(runner.Run(gctx, cfg.ShutdownTimeout))
	g.Go(func() error {
		probes.monitor(gctx, cfg.HealthcheckInterval, cfg.HealthcheckTimeout, log.With(logger.Component("health")))
		return nil
	})
	if len(cfg.ForceOnStartup) > 0 {
		g.Go(func() error {
			forceOnStartup(gctx, runner, cfg.ForceOnStartup, log)
			return nil
		})
	}

	log.Info("memkeep scheduler started", slog.Int("workers", cfg.Workers))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("memkeep scheduler stopped")
	return nil
}

func loadPolicy(path string) (subscription.Policy, error) {
	if path == "" {
		return subscription.DefaultPolicy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return subscription.Policy{}, errors.Join(subscription.ErrInvalidPolicy, err)
	}
	defer f.Close()
	return subscription.LoadPolicyYAML(f)
}

// eventSink writes events to MongoDB and, when configured, indexes them in
// OpenSearch as well.
func eventSink(coll *mongodrv.Collection, search *opensearchgo.Client, osCfg opensearch.Config, cfg appConfig) analytics.BatchSink {
	mongoSink := analytics.NewMongoSink(coll)
	if search == nil {
		return mongoSink
	}
	return analytics.MultiSink{mongoSink, analytics.NewOpenSearchSink(search, osCfg.Index(cfg.EventsIndex))}
}

func connectPostgres(ctx context.Context, log *slog.Logger) (*pgxpool.Pool, error) {
	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	if err := jobrunner.MigratePostgres(ctx, pool, pgCfg, log); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// forceOnStartup runs the listed jobs once the runner is up. Failures are
// logged; the scheduled runs still happen.
func forceOnStartup(ctx context.Context, runner *jobrunner.Runner, ids []string, log *slog.Logger) {
	for !runner.IsRunning() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
	for _, id := range ids {
		rec, err := runner.ForceExecute(ctx, id)
		if err != nil {
			log.ErrorContext(ctx, "startup job failed", logger.JobID(id), logger.Error(err))
			continue
		}
		log.InfoContext(ctx, "startup job finished", logger.JobID(id), logger.Duration(rec.Duration))
	}
}
