package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nate007-quant/mission-control/internal/api"
	apiMiddleware "github.com/nate007-quant/mission-control/internal/api/middleware"
	"github.com/nate007-quant/mission-control/internal/api/shared"
	"github.com/nate007-quant/mission-control/internal/service"
	"github.com/nate007-quant/mission-control/internal/web"
)

// healthTimeout bounds the database check behind /health.
const healthTimeout = 2 * time.Second

// setupRouter creates the router with middleware, the JSON API under /api,
// the dashboard at / and the health check.
func (app *application) setupRouter() (http.Handler, error) {
	dashboard, err := web.NewHandler(web.Config{
		Tasks:        app.tasks,
		Settings:     app.settings,
		Dispatch:     app.dispatch,
		Broker:       app.broker,
		PollInterval: app.config.Server.EventsPollInterval,
		Logger:       app.logger,
	})
	if err != nil {
		return nil, err
	}

	taskHandler := api.NewTaskHandler(app.tasks, app.logger)
	settingsHandler := api.NewSettingsHandler(app.settings, app.dispatch, app.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	r.Route("/api", func(r chi.Router) {
		api.RegisterRoutes(r, taskHandler, settingsHandler)
	})
	r.Get("/health", app.handleHealth)
	dashboard.Register(r)

	return r, nil
}

func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	version, err := app.health(ctx)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
			service.KindStorageUnavailable, "Storage unavailable", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, api.HealthResponse{
		Status:        "ok",
		SchemaVersion: version,
	})
}
