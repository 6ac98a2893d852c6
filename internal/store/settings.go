package store

import (
	"context"
	"database/sql"

	"github.com/nate007-quant/mission-control/internal/domain"
)

// SettingsStore defines the interface for the key-value settings table.
type SettingsStore interface {
	// Init writes domain.DefaultSettings for keys that do not exist yet.
	// Existing values are never overwritten, so Init is safe to call repeatedly.
	Init(ctx context.Context) error

	// Lookup returns the value for key and whether the key exists.
	Lookup(ctx context.Context, key string) (string, bool, error)

	// Get returns the value for key, or "" when the key is absent.
	// Use Lookup to tell an absent key from an empty value.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or replaces the value for key and refreshes its updated_at.
	Set(ctx context.Context, key, value string) error

	// List returns every setting ordered by key.
	List(ctx context.Context) ([]*domain.Setting, error)

	// WithTx returns a store that runs its queries inside tx.
	WithTx(tx *sql.Tx) SettingsStore
}
