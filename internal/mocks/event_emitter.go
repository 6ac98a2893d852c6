package mocks

import (
	"context"
	"sync"

	"github.com/nate007-quant/mission-control/internal/events"
)

// MockEventEmitter records emitted events.
type MockEventEmitter struct {
	EmitEventFn func(ctx context.Context, event *events.TaskEvent) error

	mu     sync.Mutex
	Events []*events.TaskEvent
}

// Ensure MockEventEmitter implements events.EventEmitter interface
var _ events.EventEmitter = (*MockEventEmitter)(nil)

// EmitEvent implements events.EventEmitter.EmitEvent
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()

	if m.EmitEventFn != nil {
		return m.EmitEventFn(ctx, event)
	}
	return nil
}

// Types returns the types of the recorded events in order.
func (m *MockEventEmitter) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}
