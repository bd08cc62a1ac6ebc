package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/alem-hub/alem-achievements/config"
	"github.com/alem-hub/alem-achievements/internal/application/command"
	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/catalogfile"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/alem-achievements/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/alem-achievements/pkg/logger"
)

// errNoLearnerSource is returned when neither fixtures nor a database are configured.
var errNoLearnerSource = errors.New("no learner source: pass --learners or set DATABASE_URL")

// errUnhealthy is returned by the health command when a backend is unreachable.
var errUnhealthy = errors.New("unhealthy")

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	learnersFile string
	catalogFile  string
	output       string
	verbose      bool
}

// app holds lazily opened infrastructure for one CLI invocation.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	flags globalFlags

	db       *postgres.Connection
	cache    *redis.Cache
	learners achievement.LearnerStore
	catalog  *achievement.Catalog
	store    achievement.CatalogStore
}

func newApp(cfg *config.Config, flags globalFlags, logOut io.Writer) *app {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if flags.verbose {
		level = logger.LevelDebug
	}
	log := logger.New(logger.Options{
		Output: logOut,
		Level:  level,
		Format: cfg.LogFormat(),
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)

	return &app{cfg: cfg, log: log, flags: flags}
}

// Close releases connections opened by the app.
func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	_ = a.log.Sync()
}

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure
// ─────────────────────────────────────────────────────────────────────────────

// database opens the PostgreSQL pool on first use.
func (a *app) database(ctx context.Context) (*postgres.Connection, error) {
	if a.db != nil {
		return a.db, nil
	}
	if !a.cfg.HasDatabase() {
		return nil, errors.New("DATABASE_URL is not set")
	}

	a.log.Debug("connecting to database")
	conn, err := postgres.NewConnection(ctx, postgres.Config{
		URL:             a.cfg.Database.URL,
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: a.cfg.Database.ConnMaxIdleTime,
		ConnectAttempts: a.cfg.Database.ConnectRetries,
		QueryTimeout:    a.cfg.Database.QueryTimeout,
	}, a.log.With(logger.Component("postgres")))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = conn
	return conn, nil
}

// learnerStore selects fixtures or PostgreSQL, with the Redis cache in
// front of PostgreSQL unless disabled. A Redis failure disables caching.
func (a *app) learnerStore(ctx context.Context) (achievement.LearnerStore, error) {
	if a.learners != nil {
		return a.learners, nil
	}

	if a.flags.learnersFile != "" {
		learners, err := memory.LoadLearnersFile(a.flags.learnersFile)
		if err != nil {
			return nil, err
		}
		a.log.Debug("loaded learner fixtures", logger.Int("count", len(learners)))
		a.learners = memory.NewLearnerStore(learners...)
		return a.learners, nil
	}

	if !a.cfg.HasDatabase() {
		return nil, errNoLearnerSource
	}
	conn, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	var store achievement.LearnerStore = postgres.NewLearnerRepository(conn)

	if !a.cfg.Redis.Disabled {
		cache, err := a.redisCache(ctx)
		if err != nil {
			a.log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		} else {
			store = redis.NewCachedLearnerStore(store, cache, a.cfg.Redis.LearnerTTL, a.log)
		}
	}

	a.learners = store
	return store, nil
}

// redisCache connects to Redis on first use.
func (a *app) redisCache(ctx context.Context) (*redis.Cache, error) {
	if a.cache != nil {
		return a.cache, nil
	}

	cache, err := redis.NewCache(ctx, redis.Config{
		URL:             a.cfg.Redis.URL,
		Host:            a.cfg.Redis.Host,
		Port:            a.cfg.Redis.Port,
		Password:        a.cfg.Redis.Password,
		DB:              a.cfg.Redis.DB,
		PoolSize:        a.cfg.Redis.PoolSize,
		MinIdleConns:    a.cfg.Redis.MinIdleConns,
		DialTimeout:     a.cfg.Redis.DialTimeout,
		ReadTimeout:     a.cfg.Redis.ReadTimeout,
		WriteTimeout:    a.cfg.Redis.WriteTimeout,
		ConnectAttempts: 2,
	}, a.log.With(logger.Component("redis")))
	if err != nil {
		return nil, err
	}
	a.cache = cache
	return cache, nil
}

// achievementCatalog builds the catalog from the configured file (or the
// embedded default) plus saved definitions when CATALOG_FROM_DB is set.
func (a *app) achievementCatalog(ctx context.Context) (*achievement.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}

	base, err := a.baseDefinitions()
	if err != nil {
		return nil, err
	}

	if a.cfg.Catalog.FromDatabase {
		conn, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		a.store = postgres.NewCatalogRepository(conn)
	}

	catalog, err := command.RestoreCatalog(ctx, base, a.store)
	if err != nil {
		return nil, err
	}
	a.log.Debug("catalog loaded", logger.Int("achievements", catalog.Len()))

	a.catalog = catalog
	return catalog, nil
}

func (a *app) baseDefinitions() ([]achievement.Definition, error) {
	path := a.flags.catalogFile
	if path == "" {
		path = a.cfg.Catalog.File
	}
	if path == "" {
		return catalogfile.Default()
	}
	return catalogfile.LoadFile(path)
}
