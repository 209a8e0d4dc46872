package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"medical-records-service/internal/middleware"
	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
	"medical-records-service/internal/services"
	"medical-records-service/internal/utils"
)

// MedicalRecordHandler handles medical record related requests.
type MedicalRecordHandler struct {
	errorResponder
	service *services.MedicalRecordService
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(service *services.MedicalRecordService, production bool) *MedicalRecordHandler {
	return &MedicalRecordHandler{errorResponder: errorResponder{production}, service: service}
}

// CreateMedicalRecordRequest represents the request body for creating a medical record.
type CreateMedicalRecordRequest struct {
	PatientID     string     `json:"patientId" validate:"omitempty,max=64"`
	AppointmentID string     `json:"appointmentId" validate:"omitempty,max=64"`
	Date          *time.Time `json:"date"`
	Symptoms      string     `json:"symptoms"`
	Diagnosis     string     `json:"diagnosis"`
	Treatment     string     `json:"treatment"`
	Notes         string     `json:"notes"`
}

// UpdateMedicalRecordRequest carries optional replacements.
type UpdateMedicalRecordRequest struct {
	Date      *time.Time `json:"date"`
	Symptoms  *string    `json:"symptoms"`
	Diagnosis *string    `json:"diagnosis"`
	Treatment *string    `json:"treatment"`
	Notes     *string    `json:"notes"`
	Status    *string    `json:"status"`
}

type listMedicalRecordsQuery struct {
	pageQuery
	PatientID   string `form:"patientId"`
	PhysicianID string `form:"physicianId"`
	Status      string `form:"status"`
	DateFrom    string `form:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo      string `form:"dateTo" validate:"omitempty,datetime=2006-01-02"`
}

// CreateMedicalRecord opens an encounter for the calling physician.
func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	var req CreateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Create(c.Request.Context(), middleware.GetActor(c), services.CreateMedicalRecordInput{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Date:          req.Date,
		Symptoms:      req.Symptoms,
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, "Registro médico creado exitosamente", result)
}

// ListMedicalRecords returns a filtered page of encounters.
func (h *MedicalRecordHandler) ListMedicalRecords(c *gin.Context) {
	var q listMedicalRecordsQuery
	if !utils.BindQuery(c, &q) {
		return
	}

	filter := repositories.MedicalRecordFilter{
		PatientID:   q.PatientID,
		PhysicianID: q.PhysicianID,
		Status:      models.RecordStatus(q.Status),
		Page:        q.page().Normalize(10, 100),
	}
	if q.DateFrom != "" {
		from, _ := time.Parse(time.DateOnly, q.DateFrom)
		filter.FromDate = &from
	}
	if q.DateTo != "" {
		to, _ := time.Parse(time.DateOnly, q.DateTo)
		to = to.Add(24*time.Hour - time.Millisecond)
		filter.ToDate = &to
	}

	records, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Paginated(c, "Registros médicos obtenidos", records, newPagination(total, filter.Page))
}

// GetMedicalRecord returns one encounter with its diagnostics, prescriptions,
// lab results and orders.
func (h *MedicalRecordHandler) GetMedicalRecord(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Registro médico obtenido", record)
}

// GetMedicalRecordsForPatient handles fetching medical records for a specific patient.
func (h *MedicalRecordHandler) GetMedicalRecordsForPatient(c *gin.Context) {
	records, err := h.service.ListByPatient(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Registros médicos del paciente obtenidos", records)
}

func (h *MedicalRecordHandler) GetMedicalRecordByAppointment(c *gin.Context) {
	record, err := h.service.GetByAppointment(c.Request.Context(), c.Param("appointmentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Registro médico obtenido", record)
}

func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	var req UpdateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	record, err := h.service.Update(c.Request.Context(), middleware.GetActor(c), c.Param("id"), services.UpdateMedicalRecordInput{
		Symptoms:  req.Symptoms,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		Notes:     req.Notes,
		Status:    req.Status,
		Date:      req.Date,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Registro médico actualizado", record)
}

// ArchiveMedicalRecord backs DELETE; records are archived, never removed.
func (h *MedicalRecordHandler) ArchiveMedicalRecord(c *gin.Context) {
	record, err := h.service.Archive(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Registro médico archivado", record)
}
