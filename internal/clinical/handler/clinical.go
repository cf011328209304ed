package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dentora/dentora-backend/internal/clinical/service"
	"github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/httputil"
	"github.com/dentora/dentora-backend/pkg/logger"
)

// ClinicalHandler handles prescription, case study and dental chart
// endpoints
type ClinicalHandler struct {
	service *service.ClinicalService
	logger  *logger.Logger
}

// NewClinicalHandler creates a new clinical handler
func NewClinicalHandler(svc *service.ClinicalService, log *logger.Logger) *ClinicalHandler {
	return &ClinicalHandler{
		service: svc,
		logger:  log,
	}
}

// PrescriptionRoutes mounts the prescription routes
func (h *ClinicalHandler) PrescriptionRoutes(r chi.Router) {
	r.Post("/", h.IssuePrescription)
	r.Get("/{id}", h.GetPrescription)
	r.Put("/{id}/notes", h.UpdatePrescriptionNotes)
}

// CaseStudyRoutes mounts the case study routes
func (h *ClinicalHandler) CaseStudyRoutes(r chi.Router) {
	r.Post("/", h.OpenCase)
	r.Get("/{id}", h.GetCase)
	r.Put("/{id}", h.UpdateCase)
	r.Post("/{id}/close", h.CloseCase)
}

// PatientClinicalRoutes mounts the per-patient clinical routes
func (h *ClinicalHandler) PatientClinicalRoutes(r chi.Router) {
	r.Get("/{patientID}/prescriptions", h.ListPrescriptions)
	r.Get("/{patientID}/cases", h.ListCases)
	r.Get("/{patientID}/dental-chart", h.GetChart)
	r.Put("/{patientID}/dental-chart", h.RecordTooth)
	r.Delete("/{patientID}/dental-chart/{tooth}", h.RemoveToothEntry)
}

// IssuePrescription issues a new prescription
func (h *ClinicalHandler) IssuePrescription(w http.ResponseWriter, r *http.Request) {
	var req service.IssuePrescriptionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rx, err := h.service.IssuePrescription(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rx)
}

// GetPrescription gets a prescription by ID
func (h *ClinicalHandler) GetPrescription(w http.ResponseWriter, r *http.Request) {
	rx, err := h.service.GetPrescription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rx)
}

// UpdatePrescriptionNotes amends the notes on a prescription
func (h *ClinicalHandler) UpdatePrescriptionNotes(w http.ResponseWriter, r *http.Request) {
	var req service.UpdatePrescriptionNotesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	rx, err := h.service.UpdatePrescriptionNotes(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rx)
}

// ListPrescriptions lists a patient's prescriptions
func (h *ClinicalHandler) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.Pagination(r)

	prescriptions, total, err := h.service.ListPrescriptions(r.Context(), chi.URLParam(r, "patientID"), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, prescriptions, httputil.PaginationMeta(page, perPage, total))
}

// OpenCase opens a new case study
func (h *ClinicalHandler) OpenCase(w http.ResponseWriter, r *http.Request) {
	var req service.OpenCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	cs, err := h.service.OpenCase(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, cs)
}

// GetCase gets a case study by ID
func (h *ClinicalHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	cs, err := h.service.GetCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, cs)
}

// ListCases lists a patient's case studies
func (h *ClinicalHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.Pagination(r)

	cases, total, err := h.service.ListCases(r.Context(), chi.URLParam(r, "patientID"), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, cases, httputil.PaginationMeta(page, perPage, total))
}

// UpdateCase updates an open case study
func (h *ClinicalHandler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	cs, err := h.service.UpdateCase(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, cs)
}

// CloseCase closes a case study
func (h *ClinicalHandler) CloseCase(w http.ResponseWriter, r *http.Request) {
	cs, err := h.service.CloseCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, cs)
}

// RecordTooth records the state of one tooth
func (h *ClinicalHandler) RecordTooth(w http.ResponseWriter, r *http.Request) {
	var req service.RecordToothRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.service.RecordTooth(r.Context(), chi.URLParam(r, "patientID"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// GetChart returns a patient's dental chart
func (h *ClinicalHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetChart(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// RemoveToothEntry removes one tooth's record
func (h *ClinicalHandler) RemoveToothEntry(w http.ResponseWriter, r *http.Request) {
	tooth, err := strconv.Atoi(chi.URLParam(r, "tooth"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid tooth number"))
		return
	}

	if err := h.service.RemoveToothEntry(r.Context(), chi.URLParam(r, "patientID"), tooth); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
