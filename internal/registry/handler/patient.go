package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dentora/dentora-backend/internal/registry/service"
	"github.com/dentora/dentora-backend/pkg/httputil"
	"github.com/dentora/dentora-backend/pkg/logger"
)

// PatientHandler handles patient endpoints
type PatientHandler struct {
	service *service.PatientService
	logger  *logger.Logger
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(svc *service.PatientService, log *logger.Logger) *PatientHandler {
	return &PatientHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the patient routes
func (h *PatientHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List lists patients, optionally filtered by name
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.Pagination(r)
	search := r.URL.Query().Get("search")

	patients, total, err := h.service.List(r.Context(), search, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, patients, httputil.PaginationMeta(page, perPage, total))
}

// Create creates a patient record
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePatientRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	patient, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, patient)
}

// Get gets a patient by ID
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, patient)
}

// Update updates a patient record
func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdatePatientRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	patient, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, patient)
}

// Delete removes a patient record
func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
