package api

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the JSON API on r. Paths are relative, so callers
// typically wrap this in r.Route("/api", ...).
func RegisterRoutes(r chi.Router, tasks *TaskHandler, settings *SettingsHandler) {
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", tasks.CreateTask)
		r.Get("/", tasks.ListTasks)
		r.Post("/claim", tasks.ClaimTask)
		r.Get("/{id}", tasks.GetTask)
		r.Patch("/{id}", tasks.UpdateTask)
	})

	r.Get("/settings", settings.GetSettings)
	r.Put("/settings", settings.UpdateSettings)

	r.Route("/dispatch", func(r chi.Router) {
		r.Get("/due", settings.Due)
		r.Post("/mark", settings.MarkDispatched)
	})
}
