package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Dispatch DispatchConfig `mapstructure:"dispatch" validate:"required"`
}

// ServerConfig contains the web server and logging settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// EventsPollInterval controls how often the live view re-reads the task
	// list, so changes made by CLI processes reach open dashboards.
	EventsPollInterval time.Duration `mapstructure:"events_poll_interval" validate:"gt=0"`
}

// DatabaseConfig contains the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	// AutoMigrate applies pending migrations and default settings whenever a
	// command or the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DispatchConfig configures the dispatch watcher.
type DispatchConfig struct {
	// CheckSchedule is a cron expression (robfig/cron syntax, descriptors
	// such as "@every 5m" allowed) for how often the gate is evaluated.
	CheckSchedule string `mapstructure:"check_schedule" validate:"required"`
	// Command is run through the shell when a dispatch is due. Empty means
	// the watcher only reports.
	Command        string        `mapstructure:"command"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" validate:"gt=0"`
}
