package domain

import (
	"strings"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusQueued  TaskStatus = "queued"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// DefaultAgentID is assigned to tasks created without an agent.
const DefaultAgentID = "platformengineer"

// MaxLogLength caps the task log; older content is dropped from the head.
const MaxLogLength = 20000

// AllTaskStatuses lists the statuses in lifecycle order.
var AllTaskStatuses = []TaskStatus{
	TaskStatusQueued,
	TaskStatusRunning,
	TaskStatusDone,
	TaskStatusFailed,
}

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusRunning, TaskStatusDone, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s ends the task lifecycle.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDone || s == TaskStatusFailed
}

// ParseTaskStatus validates a raw status string.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(strings.TrimSpace(raw))
	if !s.IsValid() {
		return "", NewValidationError("status", "must be one of queued, running, done, failed", ErrInvalidStatus)
	}
	return s, nil
}

// Task is a unit of work queued for an agent.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AgentID     string     `json:"agent_id"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	SessionKey  *string    `json:"session_key"`
	LastError   *string    `json:"last_error"`
	Log         string     `json:"log"`
}

// NewTask creates a queued task. Title, description and agent ID are trimmed;
// a blank agent ID falls back to DefaultAgentID.
// Returns ErrEmptyTitle if the trimmed title is empty.
func NewTask(title, description, agentID string, now time.Time) (*Task, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		agentID = DefaultAgentID
	}

	task := &Task{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		AgentID:     agentID,
		Status:      TaskStatusQueued,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks the task fields that the store relies on.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Transition moves the task to status, maintaining the timestamp invariants:
// StartedAt is set the first time the task runs, FinishedAt when it reaches
// a terminal status.
func (t *Task) Transition(status TaskStatus, now time.Time) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}

	now = now.UTC()
	t.Status = status
	if status == TaskStatusRunning && t.StartedAt == nil {
		t.StartedAt = &now
	}
	if status.IsTerminal() {
		t.FinishedAt = &now
	}
	t.UpdatedAt = now
	return nil
}

// AppendLog returns log with line appended on a new line, keeping only the
// last MaxLogLength characters.
func AppendLog(log, line string) string {
	if log != "" {
		log += "\n"
	}
	log += line
	return TailChars(log, MaxLogLength)
}

// TailChars returns the last n characters (runes) of s.
func TailChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
