// Package pdf renders printable clinical documents.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PrescriptionSheet is everything printed on a prescription. Empty optional
// fields are left out of the sheet.
type PrescriptionSheet struct {
	PatientName     string
	PatientDocument string
	PatientAge      *int
	PatientAddress  string
	PatientPhone    string
	PatientID       string

	DoctorName           string
	DoctorDocument       string
	DoctorProfessionalID string
	DoctorID             string

	Date          string
	AppointmentID string
	Diagnosis     string
	DiagnosisNote string
	RecordNotes   string

	Medication   string
	Dosage       string
	Frequency    string
	Duration     string
	Instructions string
}

const (
	lineHeight = 6.0
	pageWidth  = 210.0
	margin     = 18.0
)

// RenderPrescription writes sheet as an A4 PDF to w.
func RenderPrescription(w io.Writer, sheet PrescriptionSheet) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.SetTitle("Prescripción Médica", true)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	text := func(s string) {
		doc.MultiCell(0, lineHeight, tr(s), "", "L", false)
	}
	section := func(title string) {
		doc.Ln(4)
		doc.SetFont("Helvetica", "BU", 13)
		doc.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
	}
	rule := func() {
		doc.Ln(2)
		y := doc.GetY()
		doc.Line(margin, y, pageWidth-margin, y)
	}

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 10, tr("Sistema MedCore - Prescripción Médica"), "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, tr("Generada por MedCore Medical Records Service"), "", 1, "C", false, 0, "")
	rule()

	section("Datos del Paciente")
	text("Nombre: " + orNA(sheet.PatientName))
	text("Documento: " + sheet.PatientDocument)
	age := "N/A"
	if sheet.PatientAge != nil {
		age = fmt.Sprintf("%d años", *sheet.PatientAge)
	}
	text("Edad: " + age)
	text("Dirección: " + orNA(sheet.PatientAddress))
	text("Teléfono: " + orNA(sheet.PatientPhone))
	text("ID Paciente (sistema): " + orNA(sheet.PatientID))

	section("Datos del Médico")
	text("Nombre: " + orNA(sheet.DoctorName))
	if sheet.DoctorDocument != "" {
		text("Documento: " + sheet.DoctorDocument)
	}
	if sheet.DoctorProfessionalID != "" {
		text("Registro profesional: " + sheet.DoctorProfessionalID)
	}
	text("ID Médico (sistema): " + orNA(sheet.DoctorID))

	section("Datos de la Historia Clínica")
	text("Fecha de la prescripción: " + sheet.Date)
	if sheet.AppointmentID != "" {
		text("Cita asociada: " + sheet.AppointmentID)
	}
	text("Diagnóstico principal: " + orNA(sheet.Diagnosis))
	if sheet.DiagnosisNote != "" {
		text("Detalle diagnóstico: " + sheet.DiagnosisNote)
	}
	if sheet.RecordNotes != "" {
		text("Notas de la consulta: " + sheet.RecordNotes)
	}
	rule()

	section("Detalle de la Prescripción")
	text("Medicamento: " + sheet.Medication)
	text("Dosis: " + sheet.Dosage)
	text("Frecuencia: " + sheet.Frequency)
	text("Duración: " + sheet.Duration)
	if sheet.Instructions != "" {
		text("Instrucciones: " + sheet.Instructions)
	}

	doc.Ln(12)
	text("Firma del médico:")
	doc.Ln(12)
	text(strings.Repeat("_", 30))
	text(orNA(sheet.DoctorName))
	if sheet.DoctorProfessionalID != "" {
		text("Reg. Prof.: " + sheet.DoctorProfessionalID)
	}

	if err := doc.Error(); err != nil {
		return fmt.Errorf("render prescription: %w", err)
	}
	return doc.Output(w)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
