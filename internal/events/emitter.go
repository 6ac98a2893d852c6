package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoTask is returned by EmitEvent for an event that carries no task.
var ErrNoTask = errors.New("task event has no task")

// registration pairs a handler with the event types it wants. An empty
// type set means every type.
type registration struct {
	handler EventHandler
	types   map[string]struct{}
}

func (r registration) wants(eventType string) bool {
	if len(r.types) == 0 {
		return true
	}
	_, ok := r.types[eventType]
	return ok
}

// InMemoryEventEmitter delivers task events synchronously to the handlers
// registered in this process, in registration order.
type InMemoryEventEmitter struct {
	mu            sync.RWMutex
	registrations []registration
	logger        *slog.Logger
}

// Ensure InMemoryEventEmitter implements EventEmitter interface
var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With("component", "task_event_emitter"),
	}
}

// RegisterHandler adds handler for the given event types, or for all task
// events when types is empty.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...string) {
	reg := registration{handler: handler}
	if len(types) > 0 {
		reg.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			reg.types[t] = struct{}{}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.registrations = append(e.registrations, reg)
	e.logger.Debug("registered task event handler",
		"handler_count", len(e.registrations),
		"types", types)
}

// EmitEvent hands event to every interested handler. A failing or panicking
// handler does not stop delivery to the rest; all failures are joined into
// the returned error.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskEvent) error {
	if event == nil || event.Task == nil {
		return ErrNoTask
	}

	e.mu.RLock()
	regs := make([]registration, len(e.registrations))
	copy(regs, e.registrations)
	e.mu.RUnlock()

	log := e.logger.With(
		"event_id", event.ID,
		"event_type", event.Type,
		"task_id", event.Task.ID,
		"status", event.Task.Status)
	log.Debug("emitting task event")

	var errs []error
	for i, reg := range regs {
		if !reg.wants(event.Type) {
			continue
		}
		if err := deliver(ctx, reg.handler, event); err != nil {
			log.Error("task event handler failed", "error", err, "handler_index", i)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, handler EventHandler, event *TaskEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task event handler panicked: %v", r)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
