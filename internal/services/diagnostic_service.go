package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
	"medical-records-service/internal/storage"
)

// CodePrimaryDiagnosisExists marks a rejected second PRIMARY diagnostic.
const CodePrimaryDiagnosisExists = "PRIMARY_DIAGNOSIS_EXISTS"

const msgPrimaryDiagnosisExists = "Ya existe un diagnóstico principal activo para este registro médico"

// CreateDiagnosticInput carries a diagnostic plus the files staged for it.
type CreateDiagnosticInput struct {
	PatientID       string
	MedicalRecordID string
	DiseaseCode     string
	Type            string
	Title           string
	Description     string
	Diagnosis       string
	Treatment       string
	Observations    string
	NextAppointment *time.Time
	Files           *storage.Batch
}

// DiagnosticService creates diagnostics with their attachments.
type DiagnosticService struct {
	records     repositories.MedicalRecordRepositoryContract
	diseases    repositories.DiseaseRepositoryContract
	diagnostics repositories.DiagnosticRepositoryContract
	verifier    IdentityVerifier
	audit       AuditEmitter
	logger      zerolog.Logger
}

func NewDiagnosticService(
	records repositories.MedicalRecordRepositoryContract,
	diseases repositories.DiseaseRepositoryContract,
	diagnostics repositories.DiagnosticRepositoryContract,
	verifier IdentityVerifier,
	audit AuditEmitter,
	logger zerolog.Logger,
) *DiagnosticService {
	return &DiagnosticService{
		records:     records,
		diseases:    diseases,
		diagnostics: diagnostics,
		verifier:    verifier,
		audit:       audit,
		logger:      logger.With().Str("service", "diagnostics").Logger(),
	}
}

// Create validates the request, then inserts the diagnostic and one document
// per staged file in a single transaction. The staged files are deleted on
// every path except success.
func (s *DiagnosticService) Create(ctx context.Context, actor Actor, in CreateDiagnosticInput) (*models.Diagnostic, error) {
	defer in.Files.Release()

	if missing := missingFields(
		[2]string{"medicalRecordId", in.MedicalRecordID},
		[2]string{"diseaseCode", in.DiseaseCode},
		[2]string{"title", in.Title},
		[2]string{"description", in.Description},
		[2]string{"treatment", in.Treatment},
	); len(missing) > 0 {
		return nil, Validation("Faltan campos obligatorios").WithDetail("required", missing)
	}

	diagType, err := parseDiagnosticType(in.Type)
	if err != nil {
		return nil, err
	}

	if err := verifyParticipants(ctx, s.verifier, in.PatientID, actor.ID, actor.AuthHeader); err != nil {
		return nil, err
	}

	record, err := s.records.GetByID(ctx, in.MedicalRecordID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("El registro médico especificado no existe")
	}
	if err != nil {
		return nil, Internal("Error al consultar el registro médico", err)
	}
	if record.PatientID != in.PatientID {
		return nil, Validation("El registro médico no corresponde al paciente especificado").WithCode("RECORD_PATIENT_MISMATCH")
	}
	if record.PhysicianID != actor.ID {
		return nil, Forbidden("El registro médico no pertenece al médico especificado").WithCode("RECORD_DOCTOR_MISMATCH")
	}

	code := strings.TrimSpace(in.DiseaseCode)
	disease, err := s.diseases.GetByCode(ctx, code)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, Validation(fmt.Sprintf("La enfermedad con código %s no existe en el catálogo", code))
	}
	if err != nil {
		return nil, Internal("Error al consultar el catálogo de enfermedades", err)
	}
	if !disease.IsActive {
		return nil, Validation(fmt.Sprintf("La enfermedad con código %s está inactiva", code))
	}

	if diagType == models.DiagnosticPrimary {
		exists, err := s.diagnostics.HasActivePrimary(ctx, record.ID)
		if err != nil {
			return nil, Internal("Error al validar el diagnóstico principal", err)
		}
		if exists {
			return nil, Conflict(http.StatusBadRequest, CodePrimaryDiagnosisExists, msgPrimaryDiagnosisExists)
		}
	}

	diagnosisText := strings.TrimSpace(in.Diagnosis)
	if diagnosisText == "" {
		diagnosisText = fmt.Sprintf("%s - %s", disease.Code, disease.Name)
	}

	diagnostic := &models.Diagnostic{
		PatientID:       in.PatientID,
		DoctorID:        actor.ID,
		MedicalRecordID: record.ID,
		DiseaseCode:     disease.Code,
		DiseaseName:     disease.Name,
		Type:            diagType,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Diagnosis:       diagnosisText,
		Treatment:       in.Treatment,
		Observations:    in.Observations,
		NextAppointment: in.NextAppointment,
		State:           models.DiagnosticActive,
	}

	staged := in.Files.Files()
	documents := make([]models.Document, 0, len(staged))
	for _, f := range staged {
		documents = append(documents, models.Document{
			Filename:      f.OriginalName,
			StoreFilename: f.StoredName,
			FilePath:      f.Path,
			MimeType:      f.MimeType,
			FileSize:      f.Size,
			FileType:      f.Extension,
			Category:      models.CategoryDiagnosticAttachment,
			UploadedBy:    actor.ID,
		})
	}

	if err := s.diagnostics.CreateWithDocuments(ctx, diagnostic, documents); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPrimaryDiagnosisExists):
			return nil, Conflict(http.StatusBadRequest, CodePrimaryDiagnosisExists, msgPrimaryDiagnosisExists)
		case errors.Is(err, repositories.ErrNotFound):
			return nil, NotFound("El registro médico especificado no existe")
		}
		s.logger.Error().Err(err).
			Str("medicalRecordId", record.ID).
			Int("files", len(staged)).
			Msg("diagnostic transaction failed, staged files will be removed")
		return nil, Internal("Error al crear diagnóstico", err)
	}
	in.Files.Commit()

	documentIDs := make([]string, 0, len(diagnostic.Documents))
	for _, d := range diagnostic.Documents {
		documentIDs = append(documentIDs, d.ID)
	}
	s.audit.Emit(actor.audit("DIAGNOSIS_CREATE", "Diagnostics", diagnostic.ID, map[string]any{
		"patientId":       in.PatientID,
		"medicalRecordId": record.ID,
		"type":            diagType,
		"documentIds":     documentIDs,
	}), actor.AuthHeader)

	return diagnostic, nil
}

// ListByMedicalRecord returns the record's active diagnostics with documents.
func (s *DiagnosticService) ListByMedicalRecord(ctx context.Context, medicalRecordID string) ([]models.Diagnostic, error) {
	diagnostics, err := s.diagnostics.ListByMedicalRecord(ctx, medicalRecordID)
	if err != nil {
		return nil, Internal("Error al obtener diagnósticos", err)
	}
	return diagnostics, nil
}

func parseDiagnosticType(raw string) (models.DiagnosticType, error) {
	switch models.DiagnosticType(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", models.DiagnosticSecondary:
		return models.DiagnosticSecondary, nil
	case models.DiagnosticPrimary:
		return models.DiagnosticPrimary, nil
	}
	return "", Validation("El tipo de diagnóstico debe ser PRIMARY o SECONDARY")
}
