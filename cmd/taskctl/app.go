package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/phrazzld/taskmanager-api/internal/config"
	"github.com/phrazzld/taskmanager-api/internal/events"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/platform/storage"
	"github.com/phrazzld/taskmanager-api/internal/service"
	"github.com/urfave/cli/v2"
)

const (
	flagDriver   = "driver"
	flagDatabase = "db"
	flagRedis    = "redis"
	flagLogLevel = "log-level"
	flagJSON     = "json"
)

// taskctl holds what the commands share: the opened store, the service
// built on it and where output goes.
type taskctl struct {
	out         io.Writer
	errOut      io.Writer
	serviceOpts []service.Option

	logger  *slog.Logger
	backend *storage.Backend
	service service.TaskService
	asJSON  bool
}

// newApp builds the CLI. serviceOpts are passed to the task service,
// which lets tests pin the clock.
func newApp(out, errOut io.Writer, serviceOpts ...service.Option) *cli.App {
	tc := &taskctl{out: out, errOut: errOut, serviceOpts: serviceOpts}

	app := &cli.App{
		Name:      "taskctl",
		Usage:     "manage tasks in the task database",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagDriver,
				Value:   config.DriverSQLite,
				EnvVars: []string{config.EnvPrefix + "_DATABASE_DRIVER"},
				Usage:   "database driver (postgres or sqlite)",
			},
			&cli.StringFlag{
				Name:    flagDatabase,
				Value:   "tasks.db",
				EnvVars: []string{config.EnvPrefix + "_DATABASE_URL"},
				Usage:   "postgres connection string or sqlite file path",
			},
			&cli.StringFlag{
				Name:    flagRedis,
				EnvVars: []string{config.EnvPrefix + "_CACHE_REDIS_URL"},
				Usage:   "optional redis:// URL of the task cache",
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   "warn",
				EnvVars: []string{config.EnvPrefix + "_CLI_LOG_LEVEL"},
				Usage:   "set logging level",
			},
			&cli.BoolFlag{
				Name:  flagJSON,
				Usage: "print results as JSON",
			},
		},
		Before:   tc.open,
		After:    tc.close,
		Commands: tc.commands(),
	}

	app.ExitErrHandler = func(ctx *cli.Context, err error) {
		if err == nil {
			return
		}
		fmt.Fprintf(ctx.App.ErrWriter, "error: %v\n", err)
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))
	return app
}

// open connects to the configured store before any command runs.
func (tc *taskctl) open(ctx *cli.Context) error {
	level, _ := logger.ParseLevel(ctx.String(flagLogLevel))
	tc.logger = slog.New(slog.NewTextHandler(tc.errOut, &slog.HandlerOptions{Level: level}))
	tc.asJSON = ctx.Bool(flagJSON)

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver: ctx.String(flagDriver),
			URL:    ctx.String(flagDatabase),
		},
		Cache: config.CacheConfig{
			RedisURL:   ctx.String(flagRedis),
			TTLSeconds: 300,
		},
	}

	backend, err := storage.Open(ctx.Context, cfg, tc.logger)
	if err != nil {
		return err
	}
	tc.backend = backend

	emitter := events.NewInMemoryEventEmitter(tc.logger)
	emitter.RegisterHandler(events.NewLoggingHandler(tc.logger))

	tc.service, err = service.NewTaskService(backend.Store, emitter, tc.logger, tc.serviceOpts...)
	return err
}

func (tc *taskctl) close(*cli.Context) error {
	if tc.backend == nil {
		return nil
	}
	return tc.backend.Close()
}
