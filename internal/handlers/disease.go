package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"medical-records-service/internal/middleware"
	"medical-records-service/internal/repositories"
	"medical-records-service/internal/services"
	"medical-records-service/internal/utils"
)

// DiseaseHandler administers the disease catalog.
type DiseaseHandler struct {
	errorResponder
	service *services.DiseaseService
}

func NewDiseaseHandler(service *services.DiseaseService, production bool) *DiseaseHandler {
	return &DiseaseHandler{errorResponder: errorResponder{production}, service: service}
}

type DiseaseRequest struct {
	Code        *string `json:"code" validate:"omitempty,max=20"`
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func (r DiseaseRequest) input() services.DiseaseInput {
	return services.DiseaseInput{Code: r.Code, Name: r.Name, Description: r.Description, IsActive: r.IsActive}
}

type listDiseasesQuery struct {
	Query    string `form:"q"`
	IsActive string `form:"isActive" validate:"omitempty,oneof=true false"`
	Limit    int    `form:"limit" validate:"gte=0,lte=50"`
}

// ListDiseases searches by code or name, active entries unless isActive=false.
func (h *DiseaseHandler) ListDiseases(c *gin.Context) {
	var q listDiseasesQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	filter := repositories.DiseaseFilter{Query: q.Query, Limit: q.Limit}
	if q.IsActive != "" {
		active, _ := strconv.ParseBool(q.IsActive)
		filter.IsActive = &active
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Enfermedades obtenidas", items)
}

func (h *DiseaseHandler) GetDisease(c *gin.Context) {
	disease, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Enfermedad obtenida", disease)
}

func (h *DiseaseHandler) GetDiseaseByCode(c *gin.Context) {
	disease, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Enfermedad obtenida", disease)
}

func (h *DiseaseHandler) CreateDisease(c *gin.Context) {
	var req DiseaseRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	disease, err := h.service.Create(c.Request.Context(), middleware.GetActor(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, "Enfermedad creada exitosamente", disease)
}

func (h *DiseaseHandler) UpdateDisease(c *gin.Context) {
	var req DiseaseRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	disease, err := h.service.Update(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Enfermedad actualizada", disease)
}

// DeleteDisease deactivates the entry; catalog rows are never removed.
func (h *DiseaseHandler) DeleteDisease(c *gin.Context) {
	disease, changed, err := h.service.Deactivate(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	message := "Enfermedad desactivada"
	if !changed {
		message = "La enfermedad ya estaba inactiva"
	}
	utils.Success(c, message, disease)
}
