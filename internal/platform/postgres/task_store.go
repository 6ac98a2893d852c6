package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/store"
)

// taskColumns is the column list shared by every query returning full task rows.
const taskColumns = `id, title, description, agent_id, status, created_at, updated_at,
	started_at, finished_at, session_key, last_error, log`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task       domain.Task
		status     string
		startedAt  sql.NullTime
		finishedAt sql.NullTime
		sessionKey sql.NullString
		lastError  sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.AgentID,
		&status,
		&task.CreatedAt,
		&task.UpdatedAt,
		&startedAt,
		&finishedAt,
		&sessionKey,
		&lastError,
		&task.Log,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		task.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		task.FinishedAt = &t
	}
	if sessionKey.Valid {
		task.SessionKey = &sessionKey.String
	}
	if lastError.Valid {
		task.LastError = &lastError.String
	}
	return &task, nil
}

// Create implements store.TaskStore.Create
// It validates the task and inserts it, assigning the database-generated ID.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()))
		return 0, err
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}

	query := `
		INSERT INTO tasks (title, description, agent_id, status, created_at, updated_at, log)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.AgentID,
		string(task.Status),
		task.CreatedAt,
		task.UpdatedAt,
		task.Log,
	).Scan(&id)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("agent_id", task.AgentID))
		return 0, store.NewStoreError("task", "create", MapError(err))
	}

	task.ID = id
	log.Info("task created",
		slog.Int64("task_id", id),
		slog.String("agent_id", task.AgentID))
	return id, nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving task by ID", slog.Int64("task_id", id))

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, store.NewStoreError("task", "get", MapError(err))
	}
	return task, nil
}

// List implements store.TaskStore.List
// Tasks are returned newest first; ties on created_at are broken by ID.
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + taskColumns + ` FROM tasks`)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		fmt.Fprintf(&query, ` WHERE status = $%d`, len(args))
	}
	query.WriteString(` ORDER BY created_at DESC, id DESC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&query, ` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", MapError(err))
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", "list", MapError(err))
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", MapError(err))
	}

	log.Debug("tasks listed", slog.Int("count", len(tasks)))
	return tasks, nil
}

// ClaimNext implements store.TaskStore.ClaimNext
// The oldest queued row is locked with FOR UPDATE SKIP LOCKED and flipped to
// running in the same statement, so concurrent claimers never share a task.
// Returns (nil, nil) when nothing is queued.
func (s *PostgresTaskStore) ClaimNext(ctx context.Context) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = 'running',
			started_at = COALESCE(started_at, $1),
			updated_at = $1
		WHERE id = (
			SELECT id FROM tasks
			WHERE status = 'queued'
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query, s.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no queued task to claim")
			return nil, nil
		}
		log.Error("failed to claim task", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "claim", MapError(err))
	}

	log.Info("task claimed",
		slog.Int64("task_id", task.ID),
		slog.String("agent_id", task.AgentID))
	return task, nil
}

// Update implements store.TaskStore.Update
// Only the fields present in update are written; updated_at always moves.
// Moving to running stamps started_at once, moving to done or failed stamps
// finished_at. The log is appended to and trimmed to its newest
// domain.MaxLogLength characters in the same statement.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Update(
	ctx context.Context,
	id int64,
	update store.TaskUpdate,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if update.Status != nil && !update.Status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}

	args := []any{s.now()}
	sets := []string{"updated_at = $1"}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if update.Status != nil {
		sets = append(sets, "status = "+next(string(*update.Status)))
		if *update.Status == domain.TaskStatusRunning {
			sets = append(sets, "started_at = COALESCE(started_at, $1)")
		}
		if update.Status.IsTerminal() {
			sets = append(sets, "finished_at = $1")
		}
	}
	if update.SessionKey != nil {
		sets = append(sets, "session_key = "+next(*update.SessionKey))
	}
	if update.LastError != nil {
		sets = append(sets, "last_error = "+next(*update.LastError))
	}
	if update.AppendLog != nil {
		line := next(*update.AppendLog)
		limit := next(domain.MaxLogLength)
		sets = append(sets, fmt.Sprintf(
			"log = RIGHT(CASE WHEN log = '' THEN %[1]s::text ELSE log || E'\\n' || %[1]s::text END, %[2]s)",
			line, limit))
	}

	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = %s RETURNING %s`,
		strings.Join(sets, ", "),
		next(id),
		taskColumns,
	)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for update", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, store.NewStoreError("task", "update", MapError(err))
	}

	log.Info("task updated",
		slog.Int64("task_id", task.ID),
		slog.String("status", string(task.Status)))
	return task, nil
}

// CountByStatus implements store.TaskStore.CountByStatus
func (s *PostgresTaskStore) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	counts := make(map[domain.TaskStatus]int, len(domain.AllTaskStatuses))
	for _, status := range domain.AllTaskStatuses {
		counts[status] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "count", MapError(err))
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, store.NewStoreError("task", "count", MapError(err))
		}
		counts[domain.TaskStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "count", MapError(err))
	}
	return counts, nil
}
