package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/nate007-quant/mission-control/internal/events"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/service"
)

// Page sizes used by the dashboard and the task list.
const (
	RecentTaskCount = 25
	TaskListLimit   = service.DefaultListLimit
)

// DefaultPollInterval is how often the event feed re-reads the task list
// when no interval is configured.
const DefaultPollInterval = 3 * time.Second

//go:embed templates/*.html static/*
var assets embed.FS

// Config holds the dependencies of the web handler.
type Config struct {
	Tasks    service.TaskService
	Settings service.SettingsService
	Dispatch service.DispatchService

	// Broker feeds task changes made by this process to /events. Optional.
	Broker *events.Broker

	// PollInterval controls how often /events re-reads the task list so that
	// changes made by other processes show up.
	PollInterval time.Duration

	Logger *slog.Logger
}

// Handler serves the dashboard pages.
type Handler struct {
	tasks        service.TaskService
	settings     service.SettingsService
	dispatch     service.DispatchService
	broker       *events.Broker
	pollInterval time.Duration
	pages        map[string]*template.Template
	static       fs.FS
	logger       *slog.Logger
}

// NewHandler parses the embedded templates and returns a Handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Tasks == nil {
		return nil, errors.New("web: task service cannot be nil")
	}
	if cfg.Settings == nil {
		return nil, errors.New("web: settings service cannot be nil")
	}
	if cfg.Dispatch == nil {
		return nil, errors.New("web: dispatch service cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}

	return &Handler{
		tasks:        cfg.Tasks,
		settings:     cfg.Settings,
		dispatch:     cfg.Dispatch,
		broker:       cfg.Broker,
		pollInterval: cfg.PollInterval,
		pages:        pages,
		static:       static,
		logger:       cfg.Logger.With(slog.String("component", "web")),
	}, nil
}

// Register mounts the dashboard routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/tasks", h.handleTasks)
	r.Get("/tasks/new", h.handleNewTaskForm)
	r.Post("/tasks/new", h.handleNewTask)
	r.Get("/tasks/{id}", h.handleTaskDetail)
	r.Get("/settings", h.handleSettingsForm)
	r.Post("/settings", h.handleSettings)
	r.Get("/events", h.handleEvents)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(h.static))))
}

var pageNames = []string{
	"index.html",
	"tasks.html",
	"new_task.html",
	"task_detail.html",
	"settings.html",
	"error.html",
}

var templateFuncs = template.FuncMap{
	"fmtTime": formatTime,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// formatTime renders time.Time and *time.Time values; unset values render
// as an em dash.
func formatTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "—"
		}
		return dispatch.FormatTimestamp(t)
	case *time.Time:
		if t == nil || t.IsZero() {
			return "—"
		}
		return dispatch.FormatTimestamp(*t)
	default:
		return "—"
	}
}

// parsePages builds one template set per page, each sharing the layout.
func parsePages() (map[string]*template.Template, error) {
	layout, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(assets, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		page, err := clone.ParseFS(assets, "templates/"+name)
		if err != nil {
			return nil, err
		}
		pages[name] = page
	}
	return pages, nil
}

// pageData is passed to every template.
type pageData struct {
	Title string
	Nav   string
	Flash *Flash
	Data  any
}

// render executes a page into a buffer first so template errors never
// produce a half-written response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	page, ok := h.pages[name]
	if !ok {
		log.Error("unknown template", slog.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Debug("failed to write response", slog.String("error", err.Error()))
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}
