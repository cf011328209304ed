package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dentora/dentora-backend/internal/clinical/events"
	"github.com/dentora/dentora-backend/internal/clinical/repository"
	registryrepo "github.com/dentora/dentora-backend/internal/registry/repository"
	"github.com/dentora/dentora-backend/pkg/actor"
	"github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/tenant"
)

// ClinicalService handles prescriptions, case studies and dental charts
type ClinicalService struct {
	prescriptionRepo *repository.PrescriptionRepository
	caseStudyRepo    *repository.CaseStudyRepository
	chartRepo        *repository.DentalChartRepository
	patientRepo      *registryrepo.PatientRepository
	doctorRepo       *registryrepo.DoctorRepository
	publisher        *events.ClinicalEventPublisher
	logger           *logger.Logger
}

// NewClinicalService creates a new clinical service
func NewClinicalService(
	prescriptionRepo *repository.PrescriptionRepository,
	caseStudyRepo *repository.CaseStudyRepository,
	chartRepo *repository.DentalChartRepository,
	patientRepo *registryrepo.PatientRepository,
	doctorRepo *registryrepo.DoctorRepository,
	publisher *events.ClinicalEventPublisher,
	log *logger.Logger,
) *ClinicalService {
	return &ClinicalService{
		prescriptionRepo: prescriptionRepo,
		caseStudyRepo:    caseStudyRepo,
		chartRepo:        chartRepo,
		patientRepo:      patientRepo,
		doctorRepo:       doctorRepo,
		publisher:        publisher,
		logger:           log,
	}
}

// IssuePrescriptionRequest represents an issue prescription request
type IssuePrescriptionRequest struct {
	PatientID     string                  `json:"patient_id" validate:"required,uuid"`
	DoctorID      string                  `json:"doctor_id" validate:"required,uuid"`
	AppointmentID *string                 `json:"appointment_id" validate:"omitempty,uuid"`
	Medications   []repository.Medication `json:"medications" validate:"required,min=1,dive"`
	Notes         *string                 `json:"notes"`
}

// IssuePrescription issues a new prescription
func (s *ClinicalService) IssuePrescription(ctx context.Context, req *IssuePrescriptionRequest) (*repository.Prescription, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.patientRepo.GetByID(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.doctorRepo.GetByID(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	for _, m := range req.Medications {
		if m.Name == "" || m.Dosage == "" {
			return nil, errors.BadRequest("each medication needs a name and dosage")
		}
	}

	medications, err := json.Marshal(req.Medications)
	if err != nil {
		return nil, errors.Internal("failed to encode medications")
	}

	rx := &repository.Prescription{
		TenantID:      tenantID,
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		AppointmentID: req.AppointmentID,
		Medications:   medications,
		Notes:         req.Notes,
	}

	if err := s.prescriptionRepo.Create(ctx, rx); err != nil {
		return nil, err
	}

	s.publisher.PublishPrescriptionIssued(ctx, rx)

	s.logger.Info().
		Str("prescription_id", rx.ID).
		Str("prescription_number", rx.PrescriptionNumber).
		Msg("Prescription issued")

	return rx, nil
}

// GetPrescription gets a prescription by ID
func (s *ClinicalService) GetPrescription(ctx context.Context, id string) (*repository.Prescription, error) {
	return s.prescriptionRepo.GetByID(ctx, id)
}

// ListPrescriptions lists a patient's prescriptions
func (s *ClinicalService) ListPrescriptions(ctx context.Context, patientID string, page, perPage int) ([]*repository.Prescription, int64, error) {
	return s.prescriptionRepo.ListForPatient(ctx, patientID, page, perPage)
}

// UpdatePrescriptionNotesRequest represents a notes amendment
type UpdatePrescriptionNotesRequest struct {
	Notes *string `json:"notes"`
}

// UpdatePrescriptionNotes amends the notes on an issued prescription.
// The medication lines stay immutable.
func (s *ClinicalService) UpdatePrescriptionNotes(ctx context.Context, id string, req *UpdatePrescriptionNotesRequest) (*repository.Prescription, error) {
	if err := s.prescriptionRepo.UpdateNotes(ctx, id, req.Notes); err != nil {
		return nil, err
	}
	return s.prescriptionRepo.GetByID(ctx, id)
}

// OpenCaseRequest represents an open case study request
type OpenCaseRequest struct {
	PatientID string  `json:"patient_id" validate:"required,uuid"`
	DoctorID  string  `json:"doctor_id" validate:"required,uuid"`
	Title     string  `json:"title" validate:"required"`
	Diagnosis *string `json:"diagnosis"`
	Treatment *string `json:"treatment"`
}

// UpdateCaseRequest represents a case study update
type UpdateCaseRequest struct {
	Title     *string `json:"title"`
	Diagnosis *string `json:"diagnosis"`
	Treatment *string `json:"treatment"`
}

// OpenCase opens a new case study for a patient
func (s *ClinicalService) OpenCase(ctx context.Context, req *OpenCaseRequest) (*repository.CaseStudy, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.patientRepo.GetByID(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.doctorRepo.GetByID(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	cs := &repository.CaseStudy{
		TenantID:  tenantID,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Title:     req.Title,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		Status:    "open",
	}

	if err := s.caseStudyRepo.Create(ctx, cs); err != nil {
		return nil, err
	}

	return cs, nil
}

// GetCase gets a case study by ID
func (s *ClinicalService) GetCase(ctx context.Context, id string) (*repository.CaseStudy, error) {
	return s.caseStudyRepo.GetByID(ctx, id)
}

// ListCases lists a patient's case studies
func (s *ClinicalService) ListCases(ctx context.Context, patientID string, page, perPage int) ([]*repository.CaseStudy, int64, error) {
	return s.caseStudyRepo.ListForPatient(ctx, patientID, page, perPage)
}

// UpdateCase updates an open case study
func (s *ClinicalService) UpdateCase(ctx context.Context, id string, req *UpdateCaseRequest) (*repository.CaseStudy, error) {
	cs, err := s.caseStudyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cs.Status == "closed" {
		return nil, errors.BadRequest("case study is closed")
	}

	if req.Title != nil {
		cs.Title = *req.Title
	}
	if req.Diagnosis != nil {
		cs.Diagnosis = req.Diagnosis
	}
	if req.Treatment != nil {
		cs.Treatment = req.Treatment
	}

	if err := s.caseStudyRepo.Update(ctx, cs); err != nil {
		return nil, err
	}

	return cs, nil
}

// CloseCase closes a case study
func (s *ClinicalService) CloseCase(ctx context.Context, id string) (*repository.CaseStudy, error) {
	cs, err := s.caseStudyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cs.Status == "closed" {
		return nil, errors.BadRequest("case study is already closed")
	}

	now := time.Now()
	cs.Status = "closed"
	cs.ClosedAt = &now

	if err := s.caseStudyRepo.Update(ctx, cs); err != nil {
		return nil, err
	}

	return cs, nil
}

// RecordToothRequest represents a dental chart write
type RecordToothRequest struct {
	ToothNumber int     `json:"tooth_number" validate:"required"`
	Condition   string  `json:"condition" validate:"required"`
	Surfaces    *string `json:"surfaces"`
	Treatment   *string `json:"treatment"`
	Notes       *string `json:"notes"`
}

// RecordTooth records the state of one tooth on a patient's chart
func (s *ClinicalService) RecordTooth(ctx context.Context, patientID string, req *RecordToothRequest) (*repository.ToothEntry, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	entry := &repository.ToothEntry{
		TenantID:    tenantID,
		PatientID:   patientID,
		ToothNumber: req.ToothNumber,
		Condition:   req.Condition,
		Surfaces:    req.Surfaces,
		Treatment:   req.Treatment,
		Notes:       req.Notes,
	}
	if act := actor.FromContext(ctx); act != nil {
		entry.RecordedBy = &act.ID
	}

	if err := s.chartRepo.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetChart returns a patient's full dental chart
func (s *ClinicalService) GetChart(ctx context.Context, patientID string) ([]*repository.ToothEntry, error) {
	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.chartRepo.GetChart(ctx, patientID)
}

// RemoveToothEntry removes one tooth's record from a patient's chart
func (s *ClinicalService) RemoveToothEntry(ctx context.Context, patientID string, toothNumber int) error {
	if !repository.ValidToothNumber(toothNumber) {
		return errors.BadRequest("invalid tooth number, expected FDI notation 11-48")
	}
	return s.chartRepo.DeleteEntry(ctx, patientID, toothNumber)
}
