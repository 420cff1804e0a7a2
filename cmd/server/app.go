package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskmanager-api/internal/config"
	"github.com/phrazzld/taskmanager-api/internal/events"
	"github.com/phrazzld/taskmanager-api/internal/metrics"
	"github.com/phrazzld/taskmanager-api/internal/platform/storage"
	"github.com/phrazzld/taskmanager-api/internal/service"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	backend      *storage.Backend
	eventEmitter *events.InMemoryEventEmitter
	metrics      *metrics.Metrics
	taskService  service.TaskService
}

// newApplication opens the task store and wires the service, event
// handlers and metrics around it.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}

	app := &application{
		config:       cfg,
		logger:       logger,
		backend:      backend,
		eventEmitter: events.NewInMemoryEventEmitter(logger),
		metrics:      metrics.New(),
	}

	app.eventEmitter.RegisterHandler(events.NewLoggingHandler(logger))
	app.eventEmitter.RegisterHandler(app.metrics.EventHandler())

	app.taskService, err = service.NewTaskService(backend.Store, app.eventEmitter, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	if err := app.metrics.RegisterTaskCounts(app.taskService, logger); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to register task metrics: %w", err)
	}
	if backend.Cache != nil {
		if err := app.metrics.RegisterCacheStats(backend.Cache.Stats); err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to register cache metrics: %w", err)
		}
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.backend != nil {
		if err := app.backend.Close(); err != nil {
			app.logger.Error("error closing task store", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
