package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nate007-quant/mission-control/internal/config"
	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/nate007-quant/mission-control/internal/events"
	"github.com/nate007-quant/mission-control/internal/platform/postgres"
	"github.com/nate007-quant/mission-control/internal/service"
	"github.com/nate007-quant/mission-control/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	tasks    service.TaskService
	settings service.SettingsService
	dispatch service.DispatchService

	// Task events flow from the emitter into the broker, which fans them out
	// to /events subscribers.
	eventEmitter *events.InMemoryEventEmitter
	broker       *events.Broker

	// watcher is nil when no dispatch command is configured.
	watcher *dispatch.Watcher

	// health reports the applied schema version, or an error when the
	// database cannot be reached.
	health func(ctx context.Context) (int64, error)
}

// newApplication creates the application on top of an open database. When
// migrate is set, pending migrations and default settings are applied first.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	migrate bool,
) (*application, error) {
	taskStore := postgres.NewPostgresTaskStore(db, logger)
	settingsStore := postgres.NewPostgresSettingsStore(db, logger)

	if migrate {
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			return nil, err
		}
		if err := settingsStore.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize settings: %w", err)
		}
		logger.Info("Database migrated")
	}

	app, err := assemble(cfg, logger, taskStore, settingsStore, db)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.health = func(ctx context.Context) (int64, error) {
		if err := db.PingContext(ctx); err != nil {
			return 0, postgres.MapError(err)
		}
		return postgres.MigrationVersion(ctx, db, logger)
	}
	return app, nil
}

// assemble wires services, events and the watcher around the given stores.
// db may be nil, in which case settings updates are not transactional.
func assemble(
	cfg *config.Config,
	logger *slog.Logger,
	taskStore store.TaskStore,
	settingsStore store.SettingsStore,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		health: func(context.Context) (int64, error) { return 0, nil },
	}

	app.broker = events.NewBroker(logger)
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(app.broker)

	var err error
	app.tasks, err = service.NewTaskService(taskStore, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.settings, err = service.NewSettingsService(settingsStore, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings service: %w", err)
	}
	app.dispatch, err = service.NewDispatchService(settingsStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch service: %w", err)
	}

	if cfg.Dispatch.Command != "" {
		app.watcher, err = dispatch.NewWatcher(dispatch.WatcherConfig{
			Gate:     app.dispatch,
			Runner:   dispatch.ShellRunner{Timeout: cfg.Dispatch.CommandTimeout},
			Logger:   logger,
			Schedule: cfg.Dispatch.CheckSchedule,
			Command:  cfg.Dispatch.Command,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create dispatch watcher: %w", err)
		}
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router, err := app.setupRouter()
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}

	if app.watcher != nil {
		app.watcher.Start(ctx)
	}

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.watcher != nil {
		app.watcher.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
