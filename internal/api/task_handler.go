package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nate007-quant/mission-control/internal/api/shared"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/service"
)

// TaskHandler handles the task queue endpoints.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, log, &req) {
		return
	}

	task, err := h.tasks.AddTask(r.Context(), service.AddTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AgentID:     req.AgentID,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, CreateTaskResponse{ID: task.ID, Task: task})
}

// ListTasks handles GET /api/tasks?status=&limit=.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	input := service.ListTasksInput{Status: query.Get("status")}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			HandleAPIError(w, r, domain.NewValidationError("limit", "must be an integer", domain.ErrInvalidFormat))
			return
		}
		input.Limit = limit
	}

	tasks, err := h.tasks.ListTasks(r.Context(), input)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{Task: task})
}

// ClaimTask handles POST /api/tasks/claim. The response task is null when
// nothing is queued.
func (h *TaskHandler) ClaimTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	task, err := h.tasks.ClaimNext(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	if task == nil {
		log.Debug("claim found no queued task")
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{Task: task})
}

// UpdateTask handles PATCH /api/tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, log, &req) {
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), id, service.UpdateTaskInput{
		Status:     req.Status,
		SessionKey: req.SessionKey,
		LastError:  req.LastError,
		AppendLog:  req.AppendLog,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{Task: task})
}
