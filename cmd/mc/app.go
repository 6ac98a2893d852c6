package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/nate007-quant/mission-control/internal/config"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/platform/postgres"
	"github.com/nate007-quant/mission-control/internal/service"
)

// app holds the services a command runs against.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	tasks    service.TaskService
	settings service.SettingsService
	dispatch service.DispatchService
	close    func() error
}

// opener builds an app. migrate forces migrations and default settings even
// when database.auto_migrate is off.
type opener func(ctx context.Context, stderr io.Writer, migrate bool) (*app, error)

// configError marks failures to load configuration.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func openApp(ctx context.Context, stderr io.Writer, migrate bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &configError{err: err}
	}

	log, err := logger.SetupWithWriter(cfg.Server, stderr)
	if err != nil {
		return nil, &configError{err: err}
	}

	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	a, err := newApp(ctx, cfg, log, db, migrate || cfg.Database.AutoMigrate)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, db *sql.DB, migrate bool) (*app, error) {
	taskStore := postgres.NewPostgresTaskStore(db, log)
	settingsStore := postgres.NewPostgresSettingsStore(db, log)

	if migrate {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if err := settingsStore.Init(ctx); err != nil {
			return nil, err
		}
	}

	tasks, err := service.NewTaskService(taskStore, nil, log)
	if err != nil {
		return nil, err
	}
	settings, err := service.NewSettingsService(settingsStore, db, log)
	if err != nil {
		return nil, err
	}
	dispatchSvc, err := service.NewDispatchService(settingsStore, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   log,
		tasks:    tasks,
		settings: settings,
		dispatch: dispatchSvc,
		close:    db.Close,
	}, nil
}
