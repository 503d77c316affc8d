package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/service"
)

// RequestHandler handles transport request HTTP requests
type RequestHandler struct {
	service *service.RequestService
	log     *logger.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(service *service.RequestService, log *logger.Logger) *RequestHandler {
	return &RequestHandler{service: service, log: log}
}

// Routes mounts the request endpoints.
func (h *RequestHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/cancel", h.Cancel)
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	request, err := h.service.CreateRequest(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	typeFilter := r.URL.Query().Get("type")
	statusFilter := r.URL.Query().Get("status")

	requests, err := h.service.ListRequests(r.Context(), typeFilter, statusFilter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	request, err := h.service.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req service.ApproveRequestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	request, err := h.service.ApproveRequest(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req service.RejectRequestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	request, err := h.service.RejectRequest(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string
	}
	if !decodeBody(w, r, &body) {
		return
	}

	request, err := h.service.CancelRequest(r.Context(), chi.URLParam(r, "id"), body.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}
