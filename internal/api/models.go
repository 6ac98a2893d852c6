package api

import (
	"encoding/json"

	"github.com/nate007-quant/mission-control/internal/domain"
)

// CreateTaskRequest defines the payload for POST /api/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description"`
	AgentID     string `json:"agent_id"    validate:"omitempty,max=200"`
}

// UpdateTaskRequest defines the payload for PATCH /api/tasks/{id}.
// Omitted fields are left untouched.
type UpdateTaskRequest struct {
	Status     *string `json:"status"      validate:"omitempty,oneof=queued running done failed"`
	SessionKey *string `json:"session_key"`
	LastError  *string `json:"last_error"`
	AppendLog  *string `json:"append_log"`
}

// UpdateSettingsRequest defines the payload for PUT /api/settings.
// dispatch_interval_hours may be sent as a JSON number or a numeric string.
type UpdateSettingsRequest struct {
	DispatchIntervalHours *json.Number `json:"dispatch_interval_hours"`
	LastDispatchAt        *string      `json:"last_dispatch_at"`
}

// TaskResponse wraps a single task. Task is null when a claim finds nothing.
type TaskResponse struct {
	Task *domain.Task `json:"task"`
}

// CreateTaskResponse is returned by POST /api/tasks.
type CreateTaskResponse struct {
	ID   int64        `json:"id"`
	Task *domain.Task `json:"task"`
}

// TaskListResponse wraps a task listing.
type TaskListResponse struct {
	Tasks []*domain.Task `json:"tasks"`
}

// MarkDispatchedResponse is returned by POST /api/dispatch/mark.
type MarkDispatchedResponse struct {
	LastDispatchAt string `json:"last_dispatch_at"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int64  `json:"schema_version,omitempty"`
}
