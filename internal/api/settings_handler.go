package api

import (
	"log/slog"
	"net/http"

	"github.com/nate007-quant/mission-control/internal/api/shared"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/service"
)

// SettingsHandler handles the settings and dispatch gate endpoints.
type SettingsHandler struct {
	settings service.SettingsService
	dispatch service.DispatchService
	logger   *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(
	settings service.SettingsService,
	dispatch service.DispatchService,
	logger *slog.Logger,
) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{
		settings: settings,
		dispatch: dispatch,
		logger:   logger.With(slog.String("component", "settings_handler")),
	}
}

// GetSettings handles GET /api/settings.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.settings.Snapshot(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snapshot)
}

// UpdateSettings handles PUT /api/settings. Either field may be omitted;
// nothing is written unless every supplied field is valid.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req UpdateSettingsRequest
	if !decodeAndValidate(w, r, log, &req) {
		return
	}

	update := service.SettingsUpdate{LastDispatchAt: req.LastDispatchAt}
	if req.DispatchIntervalHours != nil {
		raw := req.DispatchIntervalHours.String()
		update.DispatchIntervalHours = &raw
	}

	snapshot, err := h.settings.Update(r.Context(), update)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snapshot)
}

// Due handles GET /api/dispatch/due.
func (h *SettingsHandler) Due(w http.ResponseWriter, r *http.Request) {
	decision, err := h.dispatch.Due(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, decision)
}

// MarkDispatched handles POST /api/dispatch/mark.
func (h *SettingsHandler) MarkDispatched(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	stamp, err := h.dispatch.MarkDispatched(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	log.Info("dispatch recorded", slog.String("last_dispatch_at", stamp))
	shared.RespondWithJSON(w, r, http.StatusOK, MarkDispatchedResponse{LastDispatchAt: stamp})
}
