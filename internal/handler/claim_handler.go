package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pesio-ai/be-fleet-transport/internal/logger"
	"github.com/pesio-ai/be-fleet-transport/internal/service"
)

// ClaimHandler handles reimbursement claim HTTP requests
type ClaimHandler struct {
	service *service.ClaimService
	log     *logger.Logger
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(service *service.ClaimService, log *logger.Logger) *ClaimHandler {
	return &ClaimHandler{service: service, log: log}
}

// Routes mounts the claim endpoints.
func (h *ClaimHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/submit", h.Submit)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/reimburse", h.Reimburse)
}

func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateClaimRequest
	if !decodeBody(w, r, &req) {
		return
	}

	claim, err := h.service.CreateClaim(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := h.service.ListClaims(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	claim, err := h.service.GetClaim(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (h *ClaimHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string
	}
	if !decodeBody(w, r, &body) {
		return
	}

	claim, err := h.service.SubmitClaim(r.Context(), chi.URLParam(r, "id"), body.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (h *ClaimHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ApproverID string
		Comment    *string
	}
	if !decodeBody(w, r, &body) {
		return
	}

	claim, err := h.service.ApproveClaim(r.Context(), chi.URLParam(r, "id"), body.ApproverID, body.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (h *ClaimHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ApproverID string
		Comment    string
	}
	if !decodeBody(w, r, &body) {
		return
	}

	claim, err := h.service.RejectClaim(r.Context(), chi.URLParam(r, "id"), body.ApproverID, body.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (h *ClaimHandler) Reimburse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string
	}
	if !decodeBody(w, r, &body) {
		return
	}

	claim, err := h.service.ReimburseClaim(r.Context(), chi.URLParam(r, "id"), body.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}
