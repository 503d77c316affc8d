package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/service"
)

// SettingsHandler handles settings and activity log HTTP requests
type SettingsHandler struct {
	settings *service.SettingsService
	activity *service.ActivityService
	log      *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *service.SettingsService, activity *service.ActivityService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, activity: activity, log: log}
}

// SettingsRoutes mounts the settings endpoints.
func (h *SettingsHandler) SettingsRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Patch("/", h.Update)
}

// ActivityRoutes mounts the activity log endpoints.
func (h *SettingsHandler) ActivityRoutes(r chi.Router) {
	r.Get("/{entityId}", h.ListActivity)
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	settings, err := h.settings.UpdateSettings(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	logs, err := h.activity.ListByEntityID(r.Context(), chi.URLParam(r, "entityId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
