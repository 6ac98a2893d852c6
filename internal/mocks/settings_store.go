package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/store"
)

// MockSettingsStore is an in-memory store.SettingsStore.
type MockSettingsStore struct {
	InitFn   func(ctx context.Context) error
	LookupFn func(ctx context.Context, key string) (string, bool, error)
	SetFn    func(ctx context.Context, key, value string) error
	ListFn   func(ctx context.Context) ([]*domain.Setting, error)

	// TxCount counts WithTx calls.
	TxCount int

	mu     sync.Mutex
	values map[string]*domain.Setting
}

// Ensure MockSettingsStore implements store.SettingsStore interface
var _ store.SettingsStore = (*MockSettingsStore)(nil)

// NewMockSettingsStore creates a store holding the given values.
func NewMockSettingsStore(values map[string]string) *MockSettingsStore {
	m := &MockSettingsStore{values: make(map[string]*domain.Setting)}
	for k, v := range values {
		m.values[k] = &domain.Setting{Key: k, Value: v, UpdatedAt: time.Now().UTC()}
	}
	return m
}

// Values returns a copy of the stored key-value pairs.
func (m *MockSettingsStore) Values() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.values))
	for k, s := range m.values {
		out[k] = s.Value
	}
	return out
}

// Init implements store.SettingsStore.Init
func (m *MockSettingsStore) Init(ctx context.Context) error {
	if m.InitFn != nil {
		return m.InitFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]*domain.Setting)
	}
	for k, v := range domain.DefaultSettings {
		if _, ok := m.values[k]; !ok {
			m.values[k] = &domain.Setting{Key: k, Value: v, UpdatedAt: time.Now().UTC()}
		}
	}
	return nil
}

// Lookup implements store.SettingsStore.Lookup
func (m *MockSettingsStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	if m.LookupFn != nil {
		return m.LookupFn(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.values[key]
	if !ok {
		return "", false, nil
	}
	return s.Value, true, nil
}

// Get implements store.SettingsStore.Get
func (m *MockSettingsStore) Get(ctx context.Context, key string) (string, error) {
	v, _, err := m.Lookup(ctx, key)
	return v, err
}

// Set implements store.SettingsStore.Set
func (m *MockSettingsStore) Set(ctx context.Context, key, value string) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value)
	}
	if strings.TrimSpace(key) == "" {
		return domain.ErrEmptySettingKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]*domain.Setting)
	}
	m.values[key] = &domain.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return nil
}

// List implements store.SettingsStore.List
func (m *MockSettingsStore) List(ctx context.Context) ([]*domain.Setting, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Setting, 0, len(m.values))
	for _, s := range m.values {
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// WithTx implements store.SettingsStore.WithTx. The mock has no transaction
// semantics and returns itself.
func (m *MockSettingsStore) WithTx(_ *sql.Tx) store.SettingsStore {
	m.mu.Lock()
	m.TxCount++
	m.mu.Unlock()
	return m
}
