package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medical-records-service/internal/models"
	"medical-records-service/internal/pdf"
	"medical-records-service/internal/repositories"
	"medical-records-service/internal/storage"
)

// FileSaver persists generated files.
type FileSaver interface {
	Save(area storage.Area, name string, data []byte) (string, error)
}

// PrescriptionFile is a rendered prescription, already written to disk.
type PrescriptionFile struct {
	FileName string
	Path     string
	Content  []byte
}

// PrescriptionPDFService renders printable prescriptions.
type PrescriptionPDFService struct {
	prescriptions repositories.PrescriptionRepositoryContract
	records       repositories.MedicalRecordRepositoryContract
	directory     UserDirectory
	files         FileSaver
	logger        zerolog.Logger
	now           func() time.Time
}

func NewPrescriptionPDFService(
	prescriptions repositories.PrescriptionRepositoryContract,
	records repositories.MedicalRecordRepositoryContract,
	directory UserDirectory,
	files FileSaver,
	logger zerolog.Logger,
) *PrescriptionPDFService {
	return &PrescriptionPDFService{
		prescriptions: prescriptions,
		records:       records,
		directory:     directory,
		files:         files,
		logger:        logger.With().Str("service", "prescription-pdf").Logger(),
		now:           time.Now,
	}
}

// Render builds the sheet for a prescription and stores it under the
// prescriptions area.
func (s *PrescriptionPDFService) Render(ctx context.Context, actor Actor, prescriptionID string) (*PrescriptionFile, error) {
	if isBlank(prescriptionID) {
		return nil, Validation("prescriptionId es requerido para generar el PDF")
	}
	prescription, err := s.prescriptions.GetByID(ctx, prescriptionID)
	if err := notFoundOr(err, "Prescripción no encontrada", "Error obteniendo prescripción"); err != nil {
		return nil, err
	}

	record, err := s.records.GetWithActiveDiagnostics(ctx, prescription.MedicalRecordID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, Internal("Error obteniendo la historia clínica", err)
	}

	var patient, doctor map[string]any
	if record != nil {
		patient = s.directory.PatientInfo(ctx, record.PatientID, actor.AuthHeader)
		doctor = s.directory.UserDetails(ctx, record.PhysicianID, actor.AuthHeader)
	}

	sheet := s.sheet(prescription, record, patient, doctor)
	var buf bytes.Buffer
	if err := pdf.RenderPrescription(&buf, sheet); err != nil {
		return nil, Internal("Error generando PDF de prescripción", err)
	}

	slug := fileSlug(sheet.PatientName)
	if slug == "" {
		slug = "paciente"
	}
	name := fmt.Sprintf("prescripcion_%s_%s.pdf", prescription.ID, slug)
	path, err := s.files.Save(storage.AreaPrescriptions, name, buf.Bytes())
	if err != nil {
		return nil, Internal("Error guardando PDF de prescripción", err)
	}
	s.logger.Info().Str("prescriptionId", prescription.ID).Str("path", path).Msg("prescription pdf saved")

	return &PrescriptionFile{FileName: name, Path: path, Content: buf.Bytes()}, nil
}

func (s *PrescriptionPDFService) sheet(p *models.Prescription, record *models.MedicalRecord, patient, doctor map[string]any) pdf.PrescriptionSheet {
	sheet := pdf.PrescriptionSheet{
		PatientName:          personName(lookupString(patient, "user.fullName", "fullName"), patient),
		PatientDocument:      joinNonEmpty(lookupString(patient, "documentType", "docType"), lookupString(patient, "documentNumber", "docNumber")),
		PatientAddress:       lookupString(patient, "address", "direccion"),
		PatientPhone:         lookupString(patient, "phone", "phoneNumber"),
		PatientAge:           ageFrom(lookupString(patient, "dateOfBirth", "birthDate"), s.now()),
		DoctorName:           personName(lookupString(doctor, "fullName"), doctor),
		DoctorDocument:       lookupString(doctor, "documentNumber", "docNumber"),
		DoctorProfessionalID: lookupString(doctor, "professionalCard", "licenseNumber", "registroMedico"),
		Medication:           p.Medication,
		Dosage:               p.Dosage,
		Frequency:            p.Frequency,
		Duration:             p.Duration,
		Instructions:         p.Instructions,
		PatientID:            p.PatientID,
		DoctorID:             p.DoctorID,
	}

	date := p.PrescriptionDate
	if record != nil {
		sheet.PatientID = record.PatientID
		sheet.DoctorID = record.PhysicianID
		sheet.RecordNotes = record.Notes
		if record.AppointmentID != nil {
			sheet.AppointmentID = *record.AppointmentID
		}
		if date.IsZero() {
			date = record.Date
		}
		if main := mainDiagnostic(record.Diagnostics); main != nil {
			sheet.Diagnosis = main.DiseaseCode + " - " + main.DiseaseName
			sheet.DiagnosisNote = main.Diagnosis
		}
	}
	if date.IsZero() {
		date = s.now()
	}
	sheet.Date = date.UTC().Format("2006-01-02 15:04 UTC")
	return sheet
}

// mainDiagnostic picks the first PRIMARY, else the first listed.
func mainDiagnostic(diagnostics []models.Diagnostic) *models.Diagnostic {
	for i := range diagnostics {
		if diagnostics[i].Type == models.DiagnosticPrimary {
			return &diagnostics[i]
		}
	}
	if len(diagnostics) > 0 {
		return &diagnostics[0]
	}
	return nil
}

// lookupString returns the first non-empty string among keys. A dotted key
// descends into nested objects.
func lookupString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		var cur any = m
		for _, part := range strings.Split(key, ".") {
			obj, ok := cur.(map[string]any)
			if !ok {
				cur = nil
				break
			}
			cur = obj[part]
		}
		if s, ok := cur.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func personName(full string, m map[string]any) string {
	if full != "" {
		return full
	}
	return joinNonEmpty(lookupString(m, "firstName"), lookupString(m, "middleName"), lookupString(m, "lastName"))
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// ageFrom returns whole years since birth, or nil if raw does not parse.
func ageFrom(raw string, now time.Time) *int {
	if raw == "" {
		return nil
	}
	birth, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if birth, err = time.Parse(time.DateOnly, raw); err != nil {
			return nil
		}
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return &age
}

var (
	slugUnsafe = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
)

func fileSlug(name string) string {
	s := slugUnsafe.ReplaceAllString(name, "")
	s = slugSpaces.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.ToLower(s)
}
