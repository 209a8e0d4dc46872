package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"medical-records-service/internal/middleware"
	"medical-records-service/internal/services"
	"medical-records-service/internal/utils"
)

// DiagnosticHandler handles diagnostic creation with attachments.
type DiagnosticHandler struct {
	errorResponder
	service *services.DiagnosticService
}

func NewDiagnosticHandler(service *services.DiagnosticService, production bool) *DiagnosticHandler {
	return &DiagnosticHandler{errorResponder: errorResponder{production}, service: service}
}

// CreateDiagnosticRequest is the non-file part of the multipart form.
type CreateDiagnosticRequest struct {
	MedicalRecordID string `form:"medicalRecordId"`
	DiseaseCode     string `form:"diseaseCode" validate:"omitempty,max=20"`
	Type            string `form:"type"`
	Title           string `form:"title" validate:"omitempty,max=255"`
	Description     string `form:"description"`
	Diagnosis       string `form:"diagnosis"`
	Treatment       string `form:"treatment"`
	Observations    string `form:"observations"`
	NextAppointment string `form:"nextAppointment"`
}

// CreateDiagnostic expects the upload middleware to have staged the
// "documents" field.
func (h *DiagnosticHandler) CreateDiagnostic(c *gin.Context) {
	var req CreateDiagnosticRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	input := services.CreateDiagnosticInput{
		PatientID:       c.Param("patientId"),
		MedicalRecordID: req.MedicalRecordID,
		DiseaseCode:     req.DiseaseCode,
		Type:            req.Type,
		Title:           req.Title,
		Description:     req.Description,
		Diagnosis:       req.Diagnosis,
		Treatment:       req.Treatment,
		Observations:    req.Observations,
		Files:           middleware.GetUploadBatch(c),
	}
	if req.NextAppointment != "" {
		next, err := parseDateTime(req.NextAppointment)
		if err != nil {
			utils.BadRequest(c, "nextAppointment debe ser una fecha válida (YYYY-MM-DD o ISO 8601)")
			return
		}
		input.NextAppointment = &next
	}

	diagnostic, err := h.service.Create(c.Request.Context(), middleware.GetActor(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, "Diagnóstico creado exitosamente", diagnostic)
}

func (h *DiagnosticHandler) ListByMedicalRecord(c *gin.Context) {
	diagnostics, err := h.service.ListByMedicalRecord(c.Request.Context(), c.Param("medicalRecordId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Diagnósticos obtenidos", diagnostics)
}

func parseDateTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}
