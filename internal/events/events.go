package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nate007-quant/mission-control/internal/domain"
)

// Task event types.
const (
	TypeTaskCreated = "task.created"
	TypeTaskClaimed = "task.claimed"
	TypeTaskUpdated = "task.updated"
)

// TaskEvent records a change to a task. Task is a snapshot taken after the
// change was persisted.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	Task *domain.Task `json:"task"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent creates a TaskEvent of the given type for task.
func NewTaskEvent(eventType string, task *domain.Task) *TaskEvent {
	return &TaskEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Task:      task,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
