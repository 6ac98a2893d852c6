package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/events"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/store"
)

// List limits applied by ListTasks.
const (
	DefaultListLimit = 200
	MaxListLimit     = 1000
)

// AddTaskInput is the raw input for creating a task.
type AddTaskInput struct {
	Title       string
	Description string
	AgentID     string
}

// ListTasksInput is the raw input for listing tasks. An empty Status lists
// every status; a non-positive Limit means DefaultListLimit.
type ListTasksInput struct {
	Status string
	Limit  int
}

// UpdateTaskInput is a partial update. Nil fields are left untouched.
type UpdateTaskInput struct {
	Status     *string
	SessionKey *string
	LastError  *string
	AppendLog  *string
}

// Dashboard is the summary shown on the web landing page.
type Dashboard struct {
	Counts map[domain.TaskStatus]int
	Recent []*domain.Task
}

// TaskService provides the task queue operations.
type TaskService interface {
	// AddTask creates a queued task. A blank title is rejected with
	// domain.ErrEmptyTitle and nothing is stored.
	AddTask(ctx context.Context, input AddTaskInput) (*domain.Task, error)

	// ListTasks returns tasks newest first, never more than the bounded limit.
	ListTasks(ctx context.Context, input ListTasksInput) ([]*domain.Task, error)

	// GetTask returns a single task or store.ErrTaskNotFound.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// ClaimNext moves the oldest queued task to running. It returns
	// (nil, nil) when nothing is queued.
	ClaimNext(ctx context.Context) (*domain.Task, error)

	// UpdateTask applies a partial update and returns the updated task.
	UpdateTask(ctx context.Context, id int64, input UpdateTaskInput) (*domain.Task, error)

	// Dashboard returns per-status counts and the most recent tasks.
	Dashboard(ctx context.Context, recent int) (*Dashboard, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	tasks   store.TaskStore
	emitter events.EventEmitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if the task store is nil. A nil emitter disables events.
func NewTaskService(
	tasks store.TaskStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
	opts ...Option,
) (TaskService, error) {
	if tasks == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:   tasks,
		emitter: emitter,
		logger:  logger.With("component", "task_service"),
		now:     applyOptions(opts).now,
	}, nil
}

// emit publishes an event for a change that is already persisted. Failures
// are logged and do not fail the operation.
func (s *taskServiceImpl) emit(ctx context.Context, eventType string, task *domain.Task) {
	if s.emitter == nil || task == nil {
		return
	}
	event := events.NewTaskEvent(eventType, task)
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit task event",
			"error", err,
			"event_type", eventType,
			"task_id", task.ID)
	}
}

// AddTask implements TaskService.AddTask
func (s *taskServiceImpl) AddTask(ctx context.Context, input AddTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(input.Title, input.Description, input.AgentID, s.now())
	if err != nil {
		log.Debug("rejected task input", "error", err)
		return nil, err
	}

	if _, err := s.tasks.Create(ctx, task); err != nil {
		log.Error("failed to create task", "error", err)
		return nil, NewServiceError("add_task", "failed to save task", err)
	}

	s.emit(ctx, events.TypeTaskCreated, task)
	return task, nil
}

// ListTasks implements TaskService.ListTasks
func (s *taskServiceImpl) ListTasks(ctx context.Context, input ListTasksInput) ([]*domain.Task, error) {
	filter := store.TaskFilter{Limit: BoundLimit(input.Limit)}

	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := domain.ParseTaskStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks", "error", err)
		return nil, NewServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// GetTask implements TaskService.GetTask
func (s *taskServiceImpl) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// ClaimNext implements TaskService.ClaimNext
func (s *taskServiceImpl) ClaimNext(ctx context.Context) (*domain.Task, error) {
	task, err := s.tasks.ClaimNext(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to claim task", "error", err)
		return nil, NewServiceError("claim_task", "failed to claim task", err)
	}

	s.emit(ctx, events.TypeTaskClaimed, task)
	return task, nil
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskServiceImpl) UpdateTask(ctx context.Context, id int64, input UpdateTaskInput) (*domain.Task, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}

	update := store.TaskUpdate{
		SessionKey: input.SessionKey,
		LastError:  input.LastError,
		AppendLog:  input.AppendLog,
	}
	if input.Status != nil {
		status, err := domain.ParseTaskStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		update.Status = &status
	}

	task, err := s.tasks.Update(ctx, id, update)
	if err != nil {
		return nil, NewServiceError("update_task", "failed to update task", err)
	}

	s.emit(ctx, events.TypeTaskUpdated, task)
	return task, nil
}

// Dashboard implements TaskService.Dashboard
func (s *taskServiceImpl) Dashboard(ctx context.Context, recent int) (*Dashboard, error) {
	counts, err := s.tasks.CountByStatus(ctx)
	if err != nil {
		return nil, NewServiceError("dashboard", "failed to count tasks", err)
	}

	tasks, err := s.tasks.List(ctx, store.TaskFilter{Limit: BoundLimit(recent)})
	if err != nil {
		return nil, NewServiceError("dashboard", "failed to list recent tasks", err)
	}

	return &Dashboard{Counts: counts, Recent: tasks}, nil
}

// BoundLimit applies DefaultListLimit to non-positive limits and caps the
// result at MaxListLimit.
func BoundLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
