// Package main implements the mission-control server: the JSON API under
// /api, the HTML dashboard with its live event stream, and, when a dispatch
// command is configured, the dispatch watcher.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nate007-quant/mission-control/internal/config"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/platform/postgres"
	"github.com/spf13/pflag"
)

func main() {
	migrate := pflag.Bool("migrate", false, "apply migrations and default settings before serving")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *migrate)
	stop()
	if err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// run loads configuration, connects to the database and serves until ctx is
// cancelled.
func run(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"dispatch_command_configured", cfg.Dispatch.Command != "")

	db, err := postgres.Open(ctx, cfg.Database, l)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, l, db, migrate || cfg.Database.AutoMigrate)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
