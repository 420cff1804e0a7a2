// Package storage opens the task store selected by configuration. Both
// the server and the CLI go through it, so they always see the same
// backend, schema and cache settings.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/taskmanager-api/internal/config"
	"github.com/phrazzld/taskmanager-api/internal/platform/cache"
	"github.com/phrazzld/taskmanager-api/internal/platform/postgres"
	"github.com/phrazzld/taskmanager-api/internal/platform/sqlite"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

// pingTimeout bounds the connectivity checks made while opening.
const pingTimeout = 5 * time.Second

// Backend is an opened task store together with the connections behind it.
type Backend struct {
	// Store is the task store to hand to the service. When caching is
	// enabled it is the cache wrapping the database store.
	Store store.TaskStore

	// Cache is the Redis cache, or nil when caching is disabled.
	Cache *cache.TaskStore

	closers []func() error
}

// Close releases every connection in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Open connects to the configured database, applies pending migrations
// and wraps the store with the Redis cache when one is configured.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Backend, error) {
	if cfg == nil {
		return nil, errors.New("storage: config cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	b := &Backend{}
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := OpenPostgres(ctx, cfg.Database.URL, log)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)

		if err := postgres.Migrate(ctx, db, log); err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Store = postgres.NewPostgresTaskStore(db, log)

	case config.DriverSQLite:
		gdb, err := sqlite.Open(cfg.Database.URL, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite connection pool: %w", err)
		}
		b.closers = append(b.closers, sqlDB.Close)
		b.Store = sqlite.NewTaskStore(gdb, log)

	default:
		return nil, fmt.Errorf("storage: unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Cache.Enabled() {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		client, err := cache.NewClient(pingCtx, cfg.Cache.RedisURL)
		cancel()
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.closers = append(b.closers, client.Close)

		b.Cache = cache.NewTaskStore(b.Store, client, cfg.Cache.TTL(), log)
		b.Store = b.Cache
		log.Info("task cache enabled", slog.Duration("ttl", cfg.Cache.TTL()))
	}

	log.Info("task store ready", slog.String("driver", cfg.Database.Driver))
	return b, nil
}

// OpenPostgres opens a pgx connection pool and verifies it is reachable.
func OpenPostgres(ctx context.Context, url string, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if log != nil {
		log.Info("database connection established")
	}
	return db, nil
}
