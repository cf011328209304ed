package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dentora/dentora-backend/internal/scheduling/repository"
	"github.com/dentora/dentora-backend/internal/scheduling/service"
	"github.com/dentora/dentora-backend/pkg/httputil"
	"github.com/dentora/dentora-backend/pkg/logger"
)

// AppointmentHandler handles appointment endpoints
type AppointmentHandler struct {
	service *service.AppointmentService
	logger  *logger.Logger
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(svc *service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the appointment routes
func (h *AppointmentHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Schedule)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Reschedule)
	r.Post("/{id}/status", h.ChangeStatus)
}

// List lists appointments with filters
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.Pagination(r)
	q := r.URL.Query()

	filter := repository.ListFilter{
		PatientID: q.Get("patient_id"),
		DoctorID:  q.Get("doctor_id"),
		Status:    q.Get("status"),
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}

	appointments, total, err := h.service.List(r.Context(), filter, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, appointments, httputil.PaginationMeta(page, perPage, total))
}

// Schedule books a new appointment
func (h *AppointmentHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req service.ScheduleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	appointment, err := h.service.Schedule(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, appointment)
}

// Get gets an appointment by ID
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appointment)
}

// Reschedule updates an appointment
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req service.RescheduleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	appointment, err := h.service.Reschedule(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appointment)
}

// ChangeStatusRequest represents a status change request
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled no_show"`
}

// ChangeStatus moves an appointment through its lifecycle
func (h *AppointmentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	appointment, err := h.service.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appointment)
}
