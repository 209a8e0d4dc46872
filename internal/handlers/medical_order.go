package handlers

import (
	"github.com/gin-gonic/gin"

	"medical-records-service/internal/middleware"
	"medical-records-service/internal/services"
	"medical-records-service/internal/utils"
)

// MedicalOrderHandler handles laboratory and radiology orders.
type MedicalOrderHandler struct {
	errorResponder
	service *services.MedicalOrderService
}

func NewMedicalOrderHandler(service *services.MedicalOrderService, production bool) *MedicalOrderHandler {
	return &MedicalOrderHandler{errorResponder: errorResponder{production}, service: service}
}

type orderRequest struct {
	PatientID          string `json:"patientId"`
	DoctorID           string `json:"doctorId"`
	MedicalRecordID    string `json:"medicalRecordId"`
	Priority           string `json:"priority"`
	ClinicalIndication string `json:"clinicalIndication" validate:"omitempty,max=2000"`
	Notes              string `json:"notes" validate:"omitempty,max=2000"`
}

func (r orderRequest) input(items []string) services.CreateOrderInput {
	return services.CreateOrderInput{
		PatientID:          r.PatientID,
		DoctorID:           r.DoctorID,
		MedicalRecordID:    r.MedicalRecordID,
		Items:              items,
		Priority:           r.Priority,
		ClinicalIndication: r.ClinicalIndication,
		Notes:              r.Notes,
	}
}

type LaboratoryOrderRequest struct {
	orderRequest
	Tests []string `json:"tests"`
}

type RadiologyOrderRequest struct {
	orderRequest
	Exams []string `json:"exams"`
}

func (h *MedicalOrderHandler) GetTemplates(c *gin.Context) {
	utils.Success(c, "Plantillas de órdenes", h.service.Templates())
}

func (h *MedicalOrderHandler) CreateLaboratoryOrder(c *gin.Context) {
	var req LaboratoryOrderRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	order, err := h.service.CreateLaboratory(c.Request.Context(), middleware.GetActor(c), req.input(req.Tests))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, "Orden de laboratorio creada", order)
}

func (h *MedicalOrderHandler) CreateRadiologyOrder(c *gin.Context) {
	var req RadiologyOrderRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	order, err := h.service.CreateRadiology(c.Request.Context(), middleware.GetActor(c), req.input(req.Exams))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, "Orden de radiología creada", order)
}

func (h *MedicalOrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Orden obtenida", order)
}

// ListPatientOrders accepts optional type and status filters.
func (h *MedicalOrderHandler) ListPatientOrders(c *gin.Context) {
	orders, err := h.service.ListByPatient(c.Request.Context(), c.Param("patientId"), c.Query("type"), c.Query("status"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Órdenes del paciente", orders)
}
