package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medical-records-service/internal/middleware"
	"medical-records-service/internal/repositories"
	"medical-records-service/internal/services"
	"medical-records-service/internal/utils"
)

// PrescriptionHandler handles prescriptions and their printable PDF.
type PrescriptionHandler struct {
	errorResponder
	service *services.PrescriptionService
	pdf     *services.PrescriptionPDFService
}

func NewPrescriptionHandler(service *services.PrescriptionService, pdf *services.PrescriptionPDFService, production bool) *PrescriptionHandler {
	return &PrescriptionHandler{errorResponder: errorResponder{production}, service: service, pdf: pdf}
}

type CreatePrescriptionRequest struct {
	PatientID       string `json:"patientId"`
	MedicalRecordID string `json:"medicalRecordId"`
	Medication      string `json:"medication" validate:"omitempty,max=255"`
	MedicationType  string `json:"medicationType" validate:"omitempty,max=50"`
	Dosage          string `json:"dosage" validate:"omitempty,max=255"`
	Frequency       string `json:"frequency" validate:"omitempty,max=255"`
	Duration        string `json:"duration" validate:"omitempty,max=100"`
	Instructions    string `json:"instructions"`
}

type UpdatePrescriptionRequest struct {
	Medication   *string `json:"medication"`
	Dosage       *string `json:"dosage"`
	Frequency    *string `json:"frequency"`
	Duration     *string `json:"duration"`
	Instructions *string `json:"instructions"`
}

type listPrescriptionsQuery struct {
	pageQuery
	MedicalRecordID string `form:"medicalRecordId"`
	PatientID       string `form:"patientId"`
	DoctorID        string `form:"doctorId"`
	Medication      string `form:"medication"`
}

// CreatePrescription answers with JSON, or with the rendered PDF when
// ?pdf=true is given.
func (h *PrescriptionHandler) CreatePrescription(c *gin.Context) {
	var req CreatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actor := middleware.GetActor(c)
	prescription, err := h.service.Create(c.Request.Context(), actor, services.CreatePrescriptionInput{
		PatientID:       req.PatientID,
		MedicalRecordID: req.MedicalRecordID,
		Medication:      req.Medication,
		MedicationType:  req.MedicationType,
		Dosage:          req.Dosage,
		Frequency:       req.Frequency,
		Duration:        req.Duration,
		Instructions:    req.Instructions,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	if wantPDF, _ := strconv.ParseBool(c.Query("pdf")); wantPDF {
		h.writePDF(c, actor, prescription.ID)
		return
	}
	utils.Created(c, "Prescripción creada exitosamente", prescription)
}

// GetPrescriptionPDF renders the sheet for an existing prescription.
func (h *PrescriptionHandler) GetPrescriptionPDF(c *gin.Context) {
	h.writePDF(c, middleware.GetActor(c), c.Param("id"))
}

func (h *PrescriptionHandler) writePDF(c *gin.Context, actor services.Actor, id string) {
	file, err := h.pdf.Render(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, file.FileName))
	c.Data(http.StatusOK, "application/pdf", file.Content)
}

func (h *PrescriptionHandler) GetPrescription(c *gin.Context) {
	prescription, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Prescripción obtenida", prescription)
}

func (h *PrescriptionHandler) ListPrescriptions(c *gin.Context) {
	var q listPrescriptionsQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	filter := repositories.PrescriptionFilter{
		MedicalRecordID: q.MedicalRecordID,
		PatientID:       q.PatientID,
		DoctorID:        q.DoctorID,
		Medication:      q.Medication,
		Page:            q.page().Normalize(10, 100),
	}
	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Paginated(c, "Prescripciones obtenidas", items, newPagination(total, filter.Page))
}

func (h *PrescriptionHandler) ListPatientPrescriptions(c *gin.Context) {
	items, err := h.service.ListByPatient(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Prescripciones del paciente obtenidas", items)
}

func (h *PrescriptionHandler) UpdatePrescription(c *gin.Context) {
	var req UpdatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	prescription, err := h.service.Update(c.Request.Context(), middleware.GetActor(c), c.Param("id"), services.UpdatePrescriptionInput{
		Medication:   req.Medication,
		Dosage:       req.Dosage,
		Frequency:    req.Frequency,
		Duration:     req.Duration,
		Instructions: req.Instructions,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Prescripción actualizada", prescription)
}

func (h *PrescriptionHandler) DeletePrescription(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Prescripción eliminada", nil)
}
