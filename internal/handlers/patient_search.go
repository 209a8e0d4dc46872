package handlers

import (
	"github.com/gin-gonic/gin"

	"medical-records-service/internal/middleware"
	"medical-records-service/internal/services"
	"medical-records-service/internal/utils"
)

type PatientSearchHandler struct {
	errorResponder
	service *services.PatientSearchService
}

func NewPatientSearchHandler(service *services.PatientSearchService, production bool) *PatientSearchHandler {
	return &PatientSearchHandler{errorResponder: errorResponder{production}, service: service}
}

type searchPatientsQuery struct {
	pageQuery
	Diagnostic string `form:"diagnostic" validate:"omitempty,max=255"`
	DateFrom   string `form:"dateFrom"`
	DateTo     string `form:"dateTo"`
}

// SearchPatients finds patients by diagnosis text and diagnostic date range.
func (h *PatientSearchHandler) SearchPatients(c *gin.Context) {
	var q searchPatientsQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	result, err := h.service.Search(c.Request.Context(), middleware.GetActor(c), services.SearchPatientsInput{
		Diagnostic: q.Diagnostic,
		DateFrom:   q.DateFrom,
		DateTo:     q.DateTo,
		Page:       q.page(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Paginated(c, "Búsqueda completada", result.Data, result.Pagination)
}
