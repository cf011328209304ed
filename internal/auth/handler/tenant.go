package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dentora/dentora-backend/internal/auth/service"
	"github.com/dentora/dentora-backend/pkg/httputil"
	"github.com/dentora/dentora-backend/pkg/logger"
)

// TenantHandler handles clinic profile endpoints
type TenantHandler struct {
	service *service.TenantService
	logger  *logger.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(svc *service.TenantService, log *logger.Logger) *TenantHandler {
	return &TenantHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the clinic profile routes
func (h *TenantHandler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Update)
	r.Post("/deactivate", h.Deactivate)
}

// Get returns the caller's clinic profile
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	clinic, err := h.service.Get(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, clinic)
}

// Update updates the caller's clinic profile
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateClinicRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	clinic, err := h.service.Update(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, clinic)
}

// Deactivate disables the caller's clinic
func (h *TenantHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context()); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
