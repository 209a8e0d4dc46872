package services

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"medical-records-service/internal/integrations"
	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
	"medical-records-service/internal/storage"
)

// UploadDocumentInput describes one standalone document upload.
type UploadDocumentInput struct {
	PatientID       string
	MedicalRecordID string
	DiagnosticID    string
	Category        string
	Description     string
	Tags            string
	Files           *storage.Batch
}

// DocumentService manages standalone patient documents.
type DocumentService struct {
	documents   repositories.DocumentRepositoryContract
	records     repositories.MedicalRecordRepositoryContract
	diagnostics repositories.DiagnosticRepositoryContract
	verifier    IdentityVerifier
	audit       AuditEmitter
	logger      zerolog.Logger
}

func NewDocumentService(
	documents repositories.DocumentRepositoryContract,
	records repositories.MedicalRecordRepositoryContract,
	diagnostics repositories.DiagnosticRepositoryContract,
	verifier IdentityVerifier,
	audit AuditEmitter,
	logger zerolog.Logger,
) *DocumentService {
	return &DocumentService{
		documents:   documents,
		records:     records,
		diagnostics: diagnostics,
		verifier:    verifier,
		audit:       audit,
		logger:      logger.With().Str("service", "documents").Logger(),
	}
}

// Upload stores the single staged file as a document row. The file is
// removed again on any failure.
func (s *DocumentService) Upload(ctx context.Context, actor Actor, in UploadDocumentInput) (*models.Document, error) {
	defer in.Files.Release()

	files := in.Files.Files()
	if len(files) != 1 {
		return nil, Validation("Archivo requerido en campo 'document'")
	}
	if missing := missingFields(
		[2]string{"patientId", in.PatientID},
		[2]string{"medicalRecordId", in.MedicalRecordID},
	); len(missing) > 0 {
		return nil, Validation("patientId y medicalRecordId son obligatorios").WithDetail("required", missing)
	}

	if !s.verifier.VerifyExists(ctx, integrations.KindPatient, in.PatientID, actor.AuthHeader) {
		return nil, NotFound("Paciente no existe")
	}

	record, err := s.records.GetByID(ctx, in.MedicalRecordID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Historia clínica no existe")
	}
	if err != nil {
		return nil, Internal("Error al consultar la historia clínica", err)
	}
	if record.PatientID != in.PatientID {
		return nil, Validation("La historia clínica no pertenece al paciente indicado").WithCode("RECORD_PATIENT_MISMATCH")
	}

	var diagnosticID *string
	if id := strings.TrimSpace(in.DiagnosticID); id != "" {
		diagnostic, err := s.diagnostics.GetByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, Validation("El diagnóstico indicado no existe").WithCode("DIAGNOSTIC_NOT_FOUND")
		}
		if err != nil {
			return nil, Internal("Error al consultar el diagnóstico", err)
		}
		if diagnostic.MedicalRecordID != record.ID || diagnostic.PatientID != in.PatientID {
			return nil, Validation("El diagnóstico no pertenece a la historia clínica indicada").WithCode("DIAGNOSTIC_RECORD_MISMATCH")
		}
		diagnosticID = &diagnostic.ID
	}

	category := models.DocumentCategory(strings.ToUpper(strings.TrimSpace(in.Category)))
	if !models.ValidCategory(category) {
		category = models.CategoryGeneral
	}

	f := files[0]
	document := &models.Document{
		PatientID:       in.PatientID,
		MedicalRecordID: record.ID,
		DiagnosticID:    diagnosticID,
		Filename:        f.OriginalName,
		StoreFilename:   f.StoredName,
		FilePath:        f.Path,
		MimeType:        f.MimeType,
		FileSize:        f.Size,
		FileType:        f.Extension,
		Category:        category,
		Description:     in.Description,
		Tags:            splitTags(in.Tags),
		UploadedBy:      actor.ID,
	}

	if err := s.documents.Create(ctx, document); err != nil {
		return nil, Internal("Error subiendo documento", err)
	}
	in.Files.Commit()

	s.audit.Emit(actor.audit("DOCUMENT_UPLOAD", "Document", document.ID, map[string]any{
		"patientId":       document.PatientID,
		"medicalRecordId": document.MedicalRecordID,
		"diagnosticId":    document.DiagnosticID,
	}), actor.AuthHeader)
	return document, nil
}

func splitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (s *DocumentService) List(ctx context.Context, filter repositories.DocumentFilter) ([]models.Document, int64, error) {
	items, total, err := s.documents.List(ctx, filter)
	if err != nil {
		return nil, 0, Internal("Error listando documentos", err)
	}
	return items, total, nil
}

// Open returns the document if both its row and its file exist.
func (s *DocumentService) Open(ctx context.Context, id string) (*models.Document, error) {
	document, err := s.documents.GetByID(ctx, id)
	if err := notFoundOr(err, "Documento no encontrado", "Error obteniendo documento"); err != nil {
		return nil, err
	}
	if _, err := os.Stat(document.FilePath); err != nil {
		s.logger.Warn().Err(err).Str("documentId", id).Msg("document file missing on disk")
		return nil, NotFound("Archivo no existe")
	}
	return document, nil
}

// Delete soft-deletes a document. Only its uploader or an administrator may.
func (s *DocumentService) Delete(ctx context.Context, actor Actor, id string) error {
	document, err := s.documents.GetByID(ctx, id)
	if err := notFoundOr(err, "Documento no encontrado", "Error obteniendo documento"); err != nil {
		return err
	}
	if document.UploadedBy != actor.ID && actor.Role != models.RoleAdmin {
		return Forbidden("No autorizado")
	}

	if err := s.documents.SoftDelete(ctx, id); err != nil {
		return notFoundOr(err, "Documento no encontrado", "Error eliminando documento")
	}
	s.audit.Emit(actor.audit("DOCUMENT_DELETE", "Document", id, map[string]any{
		"patientId": document.PatientID,
	}), actor.AuthHeader)
	return nil
}
