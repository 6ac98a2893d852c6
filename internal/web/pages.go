package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nate007-quant/mission-control/internal/api"
	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/redact"
	"github.com/nate007-quant/mission-control/internal/service"
)

type statusCount struct {
	Status domain.TaskStatus
	Count  int
}

type indexData struct {
	Counts         []statusCount
	Tasks          []*domain.Task
	Interval       string
	LastDispatchAt string
	Decision       *dispatch.Decision
}

type tasksData struct {
	Tasks    []*domain.Task
	Status   string
	Statuses []domain.TaskStatus
}

type settingsData struct {
	Interval       string
	LastDispatchAt string
}

type errorData struct {
	Status  int
	Message string
}

// renderError shows an error page with a status derived from err.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := api.MapErrorToStatusCode(err)
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Log(r.Context(), level, "page request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status_code", status),
		slog.String("error", redact.Error(err)))

	h.render(w, r, status, "error.html", pageData{
		Title: http.StatusText(status),
		Data:  errorData{Status: status, Message: api.GetSafeErrorMessage(err)},
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dash, err := h.tasks.Dashboard(ctx, RecentTaskCount)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	snapshot, err := h.settings.Snapshot(ctx)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data := indexData{
		Tasks:          dash.Recent,
		Interval:       snapshot.DispatchIntervalHours,
		LastDispatchAt: snapshot.LastDispatchAt,
	}
	for _, status := range domain.AllTaskStatuses {
		data.Counts = append(data.Counts, statusCount{Status: status, Count: dash.Counts[status]})
	}
	if decision, err := h.dispatch.Due(ctx); err == nil {
		data.Decision = &decision
	}

	h.render(w, r, http.StatusOK, "index.html", pageData{
		Title: "Dashboard",
		Nav:   "index",
		Flash: popFlash(w, r),
		Data:  data,
	})
}

func (h *Handler) handleTasks(w http.ResponseWriter, r *http.Request) {
	// Unknown statuses fall back to the unfiltered list.
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if !domain.TaskStatus(status).IsValid() {
		status = ""
	}

	tasks, err := h.tasks.ListTasks(r.Context(), service.ListTasksInput{Status: status, Limit: TaskListLimit})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "tasks.html", pageData{
		Title: "Tasks",
		Nav:   "tasks",
		Flash: popFlash(w, r),
		Data:  tasksData{Tasks: tasks, Status: status, Statuses: domain.AllTaskStatuses},
	})
}

func (h *Handler) handleNewTaskForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "new_task.html", pageData{
		Title: "New task",
		Nav:   "new",
		Flash: popFlash(w, r),
		Data:  domain.DefaultAgentID,
	})
}

func (h *Handler) handleNewTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if err := r.ParseForm(); err != nil {
		setFlash(w, FlashError, "Could not read the form.")
		redirect(w, r, "/tasks/new")
		return
	}

	input := service.AddTaskInput{
		Title:       strings.TrimSpace(r.PostForm.Get("title")),
		Description: strings.TrimSpace(r.PostForm.Get("description")),
		AgentID:     strings.TrimSpace(r.PostForm.Get("agent_id")),
	}
	if input.Title == "" {
		setFlash(w, FlashError, "Title is required.")
		redirect(w, r, "/tasks/new")
		return
	}

	task, err := h.tasks.AddTask(r.Context(), input)
	if err != nil {
		log.Warn("failed to add task from form", slog.String("error", redact.Error(err)))
		setFlash(w, FlashError, api.GetSafeErrorMessage(err))
		redirect(w, r, "/tasks/new")
		return
	}

	setFlash(w, FlashOK, "Task #"+strconv.FormatInt(task.ID, 10)+" added to queue.")
	redirect(w, r, "/tasks")
}

func (h *Handler) handleTaskDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderError(w, r, domain.ErrInvalidID)
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "task_detail.html", pageData{
		Title: "Task #" + strconv.FormatInt(task.ID, 10),
		Nav:   "tasks",
		Flash: popFlash(w, r),
		Data:  task,
	})
}

func (h *Handler) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.settings.Snapshot(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "settings.html", pageData{
		Title: "Settings",
		Nav:   "settings",
		Flash: popFlash(w, r),
		Data: settingsData{
			Interval:       snapshot.DispatchIntervalHours,
			LastDispatchAt: snapshot.LastDispatchAt,
		},
	})
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if err := r.ParseForm(); err != nil {
		setFlash(w, FlashError, "Could not read the form.")
		redirect(w, r, "/settings")
		return
	}

	interval := strings.TrimSpace(r.PostForm.Get("dispatch_interval_hours"))
	err := h.settings.Set(r.Context(), domain.SettingDispatchIntervalHours, interval)
	switch {
	case errors.Is(err, dispatch.ErrInvalidInterval):
		setFlash(w, FlashError, "Interval must be a positive number (hours).")
		redirect(w, r, "/settings")
		return
	case err != nil:
		log.Warn("failed to save settings", slog.String("error", redact.Error(err)))
		setFlash(w, FlashError, api.GetSafeErrorMessage(err))
		redirect(w, r, "/settings")
		return
	}

	setFlash(w, FlashOK, "Saved.")
	redirect(w, r, "/")
}
