package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
)

// CodeAllergyConflict marks a prescription refused for a recorded allergy.
const CodeAllergyConflict = "ALLERGY_CONFLICT"

// DurationUndefined is stored when no duration was given or inferred.
const DurationUndefined = "sin duración definida"

var defaultDurations = map[string]string{
	"ANTIBIOTIC":       "7 días",
	"ANALGESIC":        "3 días",
	"ANTIINFLAMMATORY": "5 días",
}

// InferDuration prefers the explicit value, then the default for the
// medication type, then DurationUndefined. It never returns "".
func InferDuration(medicationType, explicit string) string {
	if d := strings.TrimSpace(explicit); d != "" {
		return d
	}
	if d, ok := defaultDurations[strings.ToUpper(strings.TrimSpace(medicationType))]; ok {
		return d
	}
	return DurationUndefined
}

// allergyMatches compares case-insensitively in both directions, so
// "Penicilina" blocks "penicilina benzatínica" and "Amoxicilina" is blocked
// by an allergy recorded as "amoxicilina 500mg".
func allergyMatches(allergies []string, medication string) (string, bool) {
	med := strings.ToLower(strings.TrimSpace(medication))
	if med == "" {
		return "", false
	}
	for _, allergy := range allergies {
		a := strings.ToLower(strings.TrimSpace(allergy))
		if a == "" {
			continue
		}
		if strings.Contains(a, med) || strings.Contains(med, a) {
			return allergy, true
		}
	}
	return "", false
}

// CreatePrescriptionInput is the body of a new prescription. The doctor is
// the authenticated caller.
type CreatePrescriptionInput struct {
	PatientID       string
	MedicalRecordID string
	Medication      string
	Dosage          string
	Frequency       string
	Duration        string
	Instructions    string
	MedicationType  string
}

// UpdatePrescriptionInput holds optional replacements.
type UpdatePrescriptionInput struct {
	Medication   *string
	Dosage       *string
	Frequency    *string
	Duration     *string
	Instructions *string
}

// PrescriptionService enforces the prescribing rules.
type PrescriptionService struct {
	records       repositories.MedicalRecordRepositoryContract
	prescriptions repositories.PrescriptionRepositoryContract
	verifier      IdentityVerifier
	allergies     AllergyLookup
	audit         AuditEmitter
	logger        zerolog.Logger
	now           func() time.Time
}

func NewPrescriptionService(
	records repositories.MedicalRecordRepositoryContract,
	prescriptions repositories.PrescriptionRepositoryContract,
	verifier IdentityVerifier,
	allergies AllergyLookup,
	audit AuditEmitter,
	logger zerolog.Logger,
) *PrescriptionService {
	return &PrescriptionService{
		records:       records,
		prescriptions: prescriptions,
		verifier:      verifier,
		allergies:     allergies,
		audit:         audit,
		logger:        logger.With().Str("service", "prescriptions").Logger(),
		now:           time.Now,
	}
}

// Create runs the prescribing checks in order and persists the prescription
// linked to the record's active PRIMARY diagnostic.
func (s *PrescriptionService) Create(ctx context.Context, actor Actor, in CreatePrescriptionInput) (*models.Prescription, error) {
	if missing := missingFields(
		[2]string{"patientId", in.PatientID},
		[2]string{"medicalRecordId", in.MedicalRecordID},
		[2]string{"medication", in.Medication},
		[2]string{"dosage", in.Dosage},
		[2]string{"frequency", in.Frequency},
	); len(missing) > 0 {
		return nil, Validation("Faltan campos obligatorios").WithDetail("required", missing)
	}

	if err := verifyParticipants(ctx, s.verifier, in.PatientID, actor.ID, actor.AuthHeader); err != nil {
		return nil, err
	}

	record, err := s.records.GetWithActiveDiagnostics(ctx, in.MedicalRecordID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Historia clínica no existe")
	}
	if err != nil {
		return nil, Internal("Error al consultar la historia clínica", err)
	}
	if record.PatientID != in.PatientID {
		return nil, Validation("La historia clínica no corresponde al paciente especificado").WithCode("RECORD_PATIENT_MISMATCH")
	}
	if len(record.Diagnostics) == 0 {
		return nil, Validation("Debe registrar al menos un diagnóstico antes de prescribir medicamentos").WithCode("DIAGNOSIS_REQUIRED")
	}
	primary := primaryDiagnostic(record.Diagnostics)
	if primary == nil {
		return nil, Validation("Debe existir un diagnóstico principal antes de crear una prescripción").WithCode("PRIMARY_DIAGNOSIS_REQUIRED")
	}

	allergies := s.allergies.Allergies(ctx, in.PatientID, actor.AuthHeader)
	if allergy, conflict := allergyMatches(allergies, in.Medication); conflict {
		return nil, Conflict(http.StatusConflict, CodeAllergyConflict, "El paciente presenta alergia registrada a este medicamento").
			WithDetail("allergy", allergy)
	}

	prescription := &models.Prescription{
		MedicalRecordID:  record.ID,
		PatientID:        in.PatientID,
		DoctorID:         actor.ID,
		DiagnosticID:     &primary.ID,
		Medication:       strings.TrimSpace(in.Medication),
		MedicationType:   strings.ToUpper(strings.TrimSpace(in.MedicationType)),
		Dosage:           in.Dosage,
		Frequency:        in.Frequency,
		Duration:         InferDuration(in.MedicationType, in.Duration),
		Instructions:     in.Instructions,
		PrescriptionDate: s.now().UTC(),
	}
	if err := s.prescriptions.Create(ctx, prescription); err != nil {
		return nil, Internal("Error al crear la prescripción", err)
	}

	created, err := s.prescriptions.GetByID(ctx, prescription.ID)
	if err != nil {
		return nil, Internal("Error al recuperar la prescripción", err)
	}

	s.audit.Emit(actor.audit("PRESCRIPTION_CREATE", "Prescription", created.ID, map[string]any{
		"patientId":       in.PatientID,
		"medicalRecordId": record.ID,
		"diagnosticId":    primary.ID,
	}), actor.AuthHeader)

	return created, nil
}

// primaryDiagnostic picks the newest ACTIVE PRIMARY diagnostic.
func primaryDiagnostic(diagnostics []models.Diagnostic) *models.Diagnostic {
	var best *models.Diagnostic
	for i := range diagnostics {
		d := &diagnostics[i]
		if d.State != models.DiagnosticActive || d.Type != models.DiagnosticPrimary {
			continue
		}
		if best == nil || d.CreatedAt.After(best.CreatedAt) {
			best = d
		}
	}
	return best
}

func (s *PrescriptionService) Get(ctx context.Context, id string) (*models.Prescription, error) {
	prescription, err := s.prescriptions.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Prescripción no encontrada")
	}
	if err != nil {
		return nil, Internal("Error al obtener la prescripción", err)
	}
	return prescription, nil
}

func (s *PrescriptionService) List(ctx context.Context, filter repositories.PrescriptionFilter) ([]models.Prescription, int64, error) {
	items, total, err := s.prescriptions.List(ctx, filter)
	if err != nil {
		return nil, 0, Internal("Error al listar prescripciones", err)
	}
	return items, total, nil
}

func (s *PrescriptionService) ListByPatient(ctx context.Context, patientID string) ([]models.Prescription, error) {
	items, _, err := s.prescriptions.List(ctx, repositories.PrescriptionFilter{
		PatientID: patientID,
		Page:      repositories.Page{Page: 1, Limit: 100},
	})
	if err != nil {
		return nil, Internal("Error al listar prescripciones del paciente", err)
	}
	return items, nil
}

func (s *PrescriptionService) Update(ctx context.Context, actor Actor, id string, in UpdatePrescriptionInput) (*models.Prescription, error) {
	prescription, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for field, value := range map[string]*string{
		"medication": in.Medication,
		"dosage":     in.Dosage,
		"frequency":  in.Frequency,
	} {
		if value != nil && isBlank(*value) {
			return nil, Validation("El campo " + field + " no puede estar vacío")
		}
	}

	if in.Medication != nil {
		prescription.Medication = strings.TrimSpace(*in.Medication)
	}
	if in.Dosage != nil {
		prescription.Dosage = *in.Dosage
	}
	if in.Frequency != nil {
		prescription.Frequency = *in.Frequency
	}
	if in.Instructions != nil {
		prescription.Instructions = *in.Instructions
	}
	if in.Duration != nil {
		prescription.Duration = InferDuration(prescription.MedicationType, *in.Duration)
	}

	if err := s.prescriptions.Update(ctx, prescription); err != nil {
		return nil, Internal("Error al actualizar la prescripción", err)
	}
	s.audit.Emit(actor.audit("PRESCRIPTION_UPDATE", "Prescription", prescription.ID, nil), actor.AuthHeader)
	return prescription, nil
}

func (s *PrescriptionService) Delete(ctx context.Context, actor Actor, id string) error {
	err := s.prescriptions.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound("Prescripción no encontrada")
	}
	if err != nil {
		return Internal("Error al eliminar la prescripción", err)
	}
	s.audit.Emit(actor.audit("PRESCRIPTION_DELETE", "Prescription", id, nil), actor.AuthHeader)
	return nil
}
