package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/service"
)

// TripHandler handles trip HTTP requests
type TripHandler struct {
	service *service.TripService
	log     *logger.Logger
}

// NewTripHandler creates a new trip handler
func NewTripHandler(service *service.TripService, log *logger.Logger) *TripHandler {
	return &TripHandler{service: service, log: log}
}

// Routes mounts the trip endpoints.
func (h *TripHandler) Routes(r chi.Router) {
	r.Post("/", h.Schedule)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/start", h.Start)
	r.Post("/{id}/end", h.End)
	r.Post("/{id}/cancel", h.Cancel)
}

func (h *TripHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req service.ScheduleTripRequest
	if !decodeBody(w, r, &req) {
		return
	}

	trip, err := h.service.ScheduleTrip(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	trips, err := h.service.ListTrips(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	trip, err := h.service.GetTrip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req service.StartTripRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	trip, err := h.service.StartTrip(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) End(w http.ResponseWriter, r *http.Request) {
	var req service.EndTripRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	trip, err := h.service.EndTrip(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string
		Reason *string
	}
	if !decodeBody(w, r, &body) {
		return
	}

	trip, err := h.service.CancelTrip(r.Context(), chi.URLParam(r, "id"), body.UserID, body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}
