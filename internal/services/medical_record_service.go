package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
)

// CreateMedicalRecordInput opens an encounter; the physician is the caller.
type CreateMedicalRecordInput struct {
	PatientID     string
	AppointmentID string
	Symptoms      string
	Diagnosis     string
	Treatment     string
	Notes         string
	Date          *time.Time
}

// UpdateMedicalRecordInput holds optional replacements.
type UpdateMedicalRecordInput struct {
	Symptoms  *string
	Diagnosis *string
	Treatment *string
	Notes     *string
	Status    *string
	Date      *time.Time
}

// MedicalRecordResult pairs a record with upstream display data.
type MedicalRecordResult struct {
	Record      *models.MedicalRecord `json:"record"`
	PatientInfo map[string]any        `json:"patientInfo"`
	Appointment map[string]any        `json:"appointment,omitempty"`
}

// MedicalRecordService manages encounters.
type MedicalRecordService struct {
	records      repositories.MedicalRecordRepositoryContract
	verifier     IdentityVerifier
	appointments AppointmentValidator
	directory    UserDirectory
	audit        AuditEmitter
	logger       zerolog.Logger
	now          func() time.Time
}

func NewMedicalRecordService(
	records repositories.MedicalRecordRepositoryContract,
	verifier IdentityVerifier,
	appointments AppointmentValidator,
	directory UserDirectory,
	audit AuditEmitter,
	logger zerolog.Logger,
) *MedicalRecordService {
	return &MedicalRecordService{
		records:      records,
		verifier:     verifier,
		appointments: appointments,
		directory:    directory,
		audit:        audit,
		logger:       logger.With().Str("service", "medical_records").Logger(),
		now:          time.Now,
	}
}

func (s *MedicalRecordService) Create(ctx context.Context, actor Actor, in CreateMedicalRecordInput) (*MedicalRecordResult, error) {
	if missing := missingFields(
		[2]string{"patientId", in.PatientID},
		[2]string{"symptoms", in.Symptoms},
	); len(missing) > 0 {
		return nil, Validation("Faltan campos obligatorios").WithDetail("required", missing)
	}

	if err := verifyParticipants(ctx, s.verifier, in.PatientID, actor.ID, actor.AuthHeader); err != nil {
		return nil, err
	}

	var appointment map[string]any
	if in.AppointmentID != "" {
		check := s.appointments.ValidateAppointmentForPatient(ctx, in.AppointmentID, in.PatientID, actor.AuthHeader)
		if !check.OK {
			return nil, Validation("La cita no es válida para este paciente").
				WithCode("INVALID_APPOINTMENT").
				WithDetail("reason", check.Reason).
				WithDetail("appointment", check.Appointment)
		}
		appointment = check.Appointment
	}

	patientInfo := s.directory.PatientInfo(ctx, in.PatientID, actor.AuthHeader)

	date := s.now().UTC()
	if in.Date != nil {
		date = in.Date.UTC()
	}
	record := &models.MedicalRecord{
		PatientID:   in.PatientID,
		PhysicianID: actor.ID,
		Date:        date,
		Symptoms:    in.Symptoms,
		Diagnosis:   in.Diagnosis,
		Treatment:   in.Treatment,
		Notes:       in.Notes,
		Status:      models.RecordStatusActive,
	}
	if in.AppointmentID != "" {
		appointmentID := in.AppointmentID
		record.AppointmentID = &appointmentID
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, Internal("Error al crear el registro médico", err)
	}

	s.audit.Emit(actor.audit("MEDICAL_RECORD_CREATE", "MedicalRecord", record.ID, map[string]any{
		"patientId":     in.PatientID,
		"appointmentId": in.AppointmentID,
	}), actor.AuthHeader)

	return &MedicalRecordResult{Record: record, PatientInfo: patientInfo, Appointment: appointment}, nil
}

// Get returns the record with all child collections.
func (s *MedicalRecordService) Get(ctx context.Context, id string) (*models.MedicalRecord, error) {
	record, err := s.records.GetDetailed(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Registro médico no encontrado")
	}
	if err != nil {
		return nil, Internal("Error al obtener el registro médico", err)
	}
	return record, nil
}

func (s *MedicalRecordService) List(ctx context.Context, filter repositories.MedicalRecordFilter) ([]models.MedicalRecord, int64, error) {
	if filter.Status != "" && !validRecordStatus(filter.Status) {
		return nil, 0, Validation("Estado de registro inválido")
	}
	records, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, 0, Internal("Error al listar registros médicos", err)
	}
	return records, total, nil
}

func (s *MedicalRecordService) ListByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	records, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, Internal("Error al listar registros médicos del paciente", err)
	}
	return records, nil
}

func (s *MedicalRecordService) GetByAppointment(ctx context.Context, appointmentID string) (*models.MedicalRecord, error) {
	record, err := s.records.GetByAppointment(ctx, appointmentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("No existe registro médico para esta cita")
	}
	if err != nil {
		return nil, Internal("Error al obtener el registro médico", err)
	}
	return record, nil
}

func (s *MedicalRecordService) Update(ctx context.Context, actor Actor, id string, in UpdateMedicalRecordInput) (*models.MedicalRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Registro médico no encontrado")
	}
	if err != nil {
		return nil, Internal("Error al obtener el registro médico", err)
	}

	if in.Symptoms != nil {
		if isBlank(*in.Symptoms) {
			return nil, Validation("El campo symptoms no puede estar vacío")
		}
		record.Symptoms = *in.Symptoms
	}
	if in.Diagnosis != nil {
		record.Diagnosis = *in.Diagnosis
	}
	if in.Treatment != nil {
		record.Treatment = *in.Treatment
	}
	if in.Notes != nil {
		record.Notes = *in.Notes
	}
	if in.Status != nil {
		status := models.RecordStatus(strings.ToLower(strings.TrimSpace(*in.Status)))
		if !validRecordStatus(status) {
			return nil, Validation("Estado de registro inválido")
		}
		record.Status = status
	}
	if in.Date != nil {
		record.Date = in.Date.UTC()
	}

	if err := s.records.Update(ctx, record); err != nil {
		return nil, Internal("Error al actualizar el registro médico", err)
	}
	s.audit.Emit(actor.audit("MEDICAL_RECORD_UPDATE", "MedicalRecord", record.ID, nil), actor.AuthHeader)
	return record, nil
}

// Archive is the only way a record leaves the active set.
func (s *MedicalRecordService) Archive(ctx context.Context, actor Actor, id string) (*models.MedicalRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Registro médico no encontrado")
	}
	if err != nil {
		return nil, Internal("Error al obtener el registro médico", err)
	}
	if record.Status == models.RecordStatusArchived {
		return record, nil
	}

	record.Status = models.RecordStatusArchived
	if err := s.records.Update(ctx, record); err != nil {
		return nil, Internal("Error al archivar el registro médico", err)
	}
	s.audit.Emit(actor.audit("MEDICAL_RECORD_ARCHIVE", "MedicalRecord", record.ID, nil), actor.AuthHeader)
	return record, nil
}

func validRecordStatus(status models.RecordStatus) bool {
	return status == models.RecordStatusActive || status == models.RecordStatusArchived
}
