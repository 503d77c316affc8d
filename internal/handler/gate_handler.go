package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/repository"
	"github.com/pesio-ai/be-fleet-transport/internal/service"
)

// GateHandler handles gate log and penalty HTTP requests
type GateHandler struct {
	service *service.GateService
	log     *logger.Logger
}

// NewGateHandler creates a new gate handler
func NewGateHandler(service *service.GateService, log *logger.Logger) *GateHandler {
	return &GateHandler{service: service, log: log}
}

// GateLogRoutes mounts the gate log endpoints.
func (h *GateHandler) GateLogRoutes(r chi.Router) {
	r.Post("/", h.RecordEntry)
	r.Get("/", h.ListGateLogs)
	r.Post("/{id}/exit", h.RecordExit)
}

// PenaltyRoutes mounts the penalty endpoints.
func (h *GateHandler) PenaltyRoutes(r chi.Router) {
	r.Get("/", h.ListPenalties)
	r.Post("/{id}/confirm", h.ConfirmPenalty)
	r.Post("/{id}/waive", h.WaivePenalty)
}

// gateEntryResponse pairs the created gate log with the penalty it minted,
// if any.
type gateEntryResponse struct {
	GateLog *repository.GateLog
	Penalty *repository.Penalty
}

func (h *GateHandler) RecordEntry(w http.ResponseWriter, r *http.Request) {
	var req service.RecordGateEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	gateLog, penalty, err := h.service.RecordGateEntry(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gateEntryResponse{GateLog: gateLog, Penalty: penalty})
}

func (h *GateHandler) ListGateLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListGateLogs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *GateHandler) RecordExit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OutTime time.Time
		Remarks *string
	}
	if !decodeBody(w, r, &body) {
		return
	}

	gateLog, err := h.service.RecordGateExit(r.Context(), chi.URLParam(r, "id"), body.OutTime, body.Remarks)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gateLog)
}

func (h *GateHandler) ListPenalties(w http.ResponseWriter, r *http.Request) {
	penalties, err := h.service.ListPenalties(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, penalties)
}

func (h *GateHandler) ConfirmPenalty(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConfirmedBy string
	}
	if !decodeBody(w, r, &body) {
		return
	}

	penalty, err := h.service.ConfirmPenalty(r.Context(), chi.URLParam(r, "id"), body.ConfirmedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, penalty)
}

func (h *GateHandler) WaivePenalty(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WaivedBy     string
		WaiverReason string
	}
	if !decodeBody(w, r, &body) {
		return
	}

	penalty, err := h.service.WaivePenalty(r.Context(), chi.URLParam(r, "id"), body.WaivedBy, body.WaiverReason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, penalty)
}
