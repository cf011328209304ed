package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dentora/dentora-backend/internal/registry/service"
	"github.com/dentora/dentora-backend/pkg/httputil"
	"github.com/dentora/dentora-backend/pkg/logger"
)

// DoctorHandler handles doctor endpoints
type DoctorHandler struct {
	service *service.DoctorService
	logger  *logger.Logger
}

// NewDoctorHandler creates a new doctor handler
func NewDoctorHandler(svc *service.DoctorService, log *logger.Logger) *DoctorHandler {
	return &DoctorHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the doctor routes
func (h *DoctorHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List lists doctors, optionally filtered by specialty
func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.Pagination(r)
	specialty := r.URL.Query().Get("specialty")

	doctors, total, err := h.service.List(r.Context(), specialty, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, doctors, httputil.PaginationMeta(page, perPage, total))
}

// Create creates a doctor profile
func (h *DoctorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateDoctorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	doctor, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, doctor)
}

// Get gets a doctor by ID
func (h *DoctorHandler) Get(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, doctor)
}

// Update updates a doctor profile
func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateDoctorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	doctor, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, doctor)
}

// Delete removes a doctor profile
func (h *DoctorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
