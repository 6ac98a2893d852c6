package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/store"
)

// SettingsSnapshot holds the raw values of the well-known settings.
type SettingsSnapshot struct {
	DispatchIntervalHours string `json:"dispatch_interval_hours"`
	LastDispatchAt        string `json:"last_dispatch_at"`
}

// SettingsUpdate changes one or both well-known settings. Nil fields are
// left untouched.
type SettingsUpdate struct {
	DispatchIntervalHours *string
	LastDispatchAt        *string
}

// SettingsService manages the key-value settings.
type SettingsService interface {
	// Init writes the default settings without overwriting existing values.
	Init(ctx context.Context) error

	// Get returns the value of key, or "" when it is absent.
	Get(ctx context.Context, key string) (string, error)

	// Snapshot returns the well-known settings.
	Snapshot(ctx context.Context) (*SettingsSnapshot, error)

	// Set validates and writes a single setting. An invalid
	// dispatch_interval_hours is rejected with dispatch.ErrInvalidInterval
	// and the stored value is kept.
	Set(ctx context.Context, key, value string) error

	// Update validates every field first and then writes them together.
	Update(ctx context.Context, update SettingsUpdate) (*SettingsSnapshot, error)

	// List returns every stored setting ordered by key.
	List(ctx context.Context) ([]*domain.Setting, error)
}

// settingsServiceImpl implements the SettingsService interface
type settingsServiceImpl struct {
	settings store.SettingsStore
	db       *sql.DB
	logger   *slog.Logger
}

// NewSettingsService creates a new SettingsService.
// When db is non-nil, multi-key updates run in a single transaction.
func NewSettingsService(settings store.SettingsStore, db *sql.DB, logger *slog.Logger) (SettingsService, error) {
	if settings == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "settings store cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &settingsServiceImpl{
		settings: settings,
		db:       db,
		logger:   logger.With("component", "settings_service"),
	}, nil
}

// NormalizeSetting validates value for key and returns its stored form.
// Keys without rules are stored as given.
func NormalizeSetting(key, value string) (string, error) {
	switch key {
	case domain.SettingDispatchIntervalHours:
		hours, err := dispatch.ParseInterval(value)
		if err != nil {
			return "", err
		}
		return dispatch.FormatInterval(hours), nil
	case domain.SettingLastDispatchAt:
		value = strings.TrimSpace(value)
		if value == "" {
			return "", nil
		}
		ts, err := dispatch.ParseTimestamp(value)
		if err != nil {
			return "", domain.NewValidationError(key, "must be an ISO-8601 timestamp or empty", domain.ErrInvalidFormat)
		}
		return dispatch.FormatTimestamp(ts), nil
	default:
		if strings.TrimSpace(key) == "" {
			return "", domain.ErrEmptySettingKey
		}
		return value, nil
	}
}

// Init implements SettingsService.Init
func (s *settingsServiceImpl) Init(ctx context.Context) error {
	if err := s.settings.Init(ctx); err != nil {
		return NewServiceError("init_settings", "failed to write default settings", err)
	}
	return nil
}

// Get implements SettingsService.Get
func (s *settingsServiceImpl) Get(ctx context.Context, key string) (string, error) {
	value, err := s.settings.Get(ctx, key)
	if err != nil {
		return "", NewServiceError("get_setting", "failed to read setting", err)
	}
	return value, nil
}

// Snapshot implements SettingsService.Snapshot
func (s *settingsServiceImpl) Snapshot(ctx context.Context) (*SettingsSnapshot, error) {
	interval, err := s.Get(ctx, domain.SettingDispatchIntervalHours)
	if err != nil {
		return nil, err
	}
	last, err := s.Get(ctx, domain.SettingLastDispatchAt)
	if err != nil {
		return nil, err
	}
	return &SettingsSnapshot{DispatchIntervalHours: interval, LastDispatchAt: last}, nil
}

// Set implements SettingsService.Set
func (s *settingsServiceImpl) Set(ctx context.Context, key, value string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	normalized, err := NormalizeSetting(key, value)
	if err != nil {
		log.Debug("rejected setting value", "key", key, "error", err)
		return err
	}

	if err := s.settings.Set(ctx, key, normalized); err != nil {
		return NewServiceError("set_setting", "failed to write setting", err)
	}
	return nil
}

// Update implements SettingsService.Update
func (s *settingsServiceImpl) Update(ctx context.Context, update SettingsUpdate) (*SettingsSnapshot, error) {
	type pair struct{ key, value string }
	var writes []pair

	if update.DispatchIntervalHours != nil {
		v, err := NormalizeSetting(domain.SettingDispatchIntervalHours, *update.DispatchIntervalHours)
		if err != nil {
			return nil, err
		}
		writes = append(writes, pair{domain.SettingDispatchIntervalHours, v})
	}
	if update.LastDispatchAt != nil {
		v, err := NormalizeSetting(domain.SettingLastDispatchAt, *update.LastDispatchAt)
		if err != nil {
			return nil, err
		}
		writes = append(writes, pair{domain.SettingLastDispatchAt, v})
	}

	apply := func(ctx context.Context, st store.SettingsStore) error {
		for _, w := range writes {
			if err := st.Set(ctx, w.key, w.value); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if s.db != nil && len(writes) > 1 {
		err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			return apply(ctx, s.settings.WithTx(tx))
		})
	} else {
		err = apply(ctx, s.settings)
	}
	if err != nil {
		return nil, NewServiceError("update_settings", "failed to write settings", err)
	}

	return s.Snapshot(ctx)
}

// List implements SettingsService.List
func (s *settingsServiceImpl) List(ctx context.Context) ([]*domain.Setting, error) {
	settings, err := s.settings.List(ctx)
	if err != nil {
		return nil, NewServiceError("list_settings", "failed to list settings", err)
	}
	return settings, nil
}
