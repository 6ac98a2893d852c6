package store

import (
	"context"

	"github.com/nate007-quant/mission-control/internal/domain"
)

// TaskFilter narrows a task listing.
type TaskFilter struct {
	// Status restricts the listing to one status when non-nil.
	Status *domain.TaskStatus
	// Limit caps the number of rows returned. Implementations apply it as-is;
	// callers are responsible for bounding it.
	Limit int
}

// TaskUpdate is a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Status     *domain.TaskStatus
	SessionKey *string
	LastError  *string
	AppendLog  *string
}

// IsEmpty reports whether the update carries no fields. An empty update
// still refreshes updated_at.
func (u TaskUpdate) IsEmpty() bool {
	return u.Status == nil && u.SessionKey == nil && u.LastError == nil && u.AppendLog == nil
}

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create inserts a validated, queued task and returns its assigned ID.
	// The task's ID field is set on success.
	Create(ctx context.Context, task *domain.Task) (int64, error)

	// GetByID retrieves a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// List returns tasks newest first, optionally restricted to one status.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// ClaimNext atomically moves the oldest queued task to running and returns it.
	// Returns (nil, nil) when no task is queued. Two concurrent callers never
	// receive the same task.
	ClaimNext(ctx context.Context) (*domain.Task, error)

	// Update applies a partial update and returns the updated task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, id int64, update TaskUpdate) (*domain.Task, error)

	// CountByStatus returns the number of tasks in each status. Every known
	// status is present in the result.
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error)
}
