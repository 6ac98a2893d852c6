package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/store"
)

// PostgresSettingsStore implements the store.SettingsStore interface
// on top of the settings key-value table.
type PostgresSettingsStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresSettingsStore creates a new PostgreSQL implementation of the SettingsStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSettingsStore(db store.DBTX, logger *slog.Logger) *PostgresSettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSettingsStore{
		db:     db,
		logger: logger.With(slog.String("component", "settings_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ensure PostgresSettingsStore implements store.SettingsStore interface
var _ store.SettingsStore = (*PostgresSettingsStore)(nil)

// WithTx implements store.SettingsStore.WithTx
func (s *PostgresSettingsStore) WithTx(tx *sql.Tx) store.SettingsStore {
	return &PostgresSettingsStore{
		db:     tx,
		logger: s.logger,
		now:    s.now,
	}
}

// Init implements store.SettingsStore.Init
// Defaults are inserted with ON CONFLICT DO NOTHING so existing values survive.
func (s *PostgresSettingsStore) Init(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	keys := make([]string, 0, len(domain.DefaultSettings))
	for key := range domain.DefaultSettings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := s.now()
	args := []any{now}
	values := make([]string, 0, len(keys))
	for _, key := range keys {
		args = append(args, key, domain.DefaultSettings[key])
		values = append(values, fmt.Sprintf("($%d, $%d, $1)", len(args)-1, len(args)))
	}

	query := `INSERT INTO settings (key, value, updated_at) VALUES ` +
		strings.Join(values, ", ") +
		` ON CONFLICT (key) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to initialize settings", slog.String("error", err.Error()))
		return store.NewStoreError("settings", "init", MapError(err))
	}

	inserted, err := result.RowsAffected()
	if err == nil {
		log.Info("settings initialized", slog.Int64("inserted", inserted))
	}
	return nil
}

// Lookup implements store.SettingsStore.Lookup
func (s *PostgresSettingsStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		log.Error("failed to read setting",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return "", false, store.NewStoreError("setting", "get", MapError(err))
	}
	return value, true, nil
}

// Get implements store.SettingsStore.Get
func (s *PostgresSettingsStore) Get(ctx context.Context, key string) (string, error) {
	value, _, err := s.Lookup(ctx, key)
	return value, err
}

// Set implements store.SettingsStore.Set
func (s *PostgresSettingsStore) Set(ctx context.Context, key, value string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if strings.TrimSpace(key) == "" {
		return domain.ErrEmptySettingKey
	}

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, s.now()); err != nil {
		log.Error("failed to write setting",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return store.NewStoreError("setting", "set", MapError(err))
	}

	log.Info("setting updated", slog.String("key", key))
	return nil
}

// List implements store.SettingsStore.List
func (s *PostgresSettingsStore) List(ctx context.Context) ([]*domain.Setting, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		log.Error("failed to list settings", slog.String("error", err.Error()))
		return nil, store.NewStoreError("settings", "list", MapError(err))
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	settings := make([]*domain.Setting, 0)
	for rows.Next() {
		var setting domain.Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.UpdatedAt); err != nil {
			return nil, store.NewStoreError("settings", "list", MapError(err))
		}
		setting.UpdatedAt = setting.UpdatedAt.UTC()
		settings = append(settings, &setting)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("settings", "list", MapError(err))
	}
	return settings, nil
}
