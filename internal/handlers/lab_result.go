package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medical-records-service/internal/models"
	"medical-records-service/internal/utils"
)

// LabResultHandler handles laboratory results attached to a medical record.
// The resource has no business rules beyond the record check, so it works on
// the database directly.
type LabResultHandler struct {
	errorResponder
	DB *gorm.DB
}

// NewLabResultHandler creates a new LabResultHandler.
func NewLabResultHandler(db *gorm.DB, production bool) *LabResultHandler {
	return &LabResultHandler{errorResponder: errorResponder{production}, DB: db}
}

// CreateLabResultRequest represents the request body for creating a lab result.
type CreateLabResultRequest struct {
	MedicalRecordID string `json:"medicalRecordId" validate:"required"`
	TestType        string `json:"testType" validate:"required,max=255"`
	Result          string `json:"result" validate:"required"`
	ReferenceRange  string `json:"referenceRange" validate:"omitempty,max=255"`
	LabName         string `json:"labName" validate:"omitempty,max=255"`
	TestDate        string `json:"testDate" validate:"required"`
	Comments        string `json:"comments"`
}

// UpdateLabResultRequest leaves nil fields untouched.
type UpdateLabResultRequest struct {
	TestType       *string `json:"testType" validate:"omitempty,max=255"`
	Result         *string `json:"result"`
	ReferenceRange *string `json:"referenceRange" validate:"omitempty,max=255"`
	LabName        *string `json:"labName" validate:"omitempty,max=255"`
	TestDate       *string `json:"testDate"`
	Comments       *string `json:"comments"`
}

type listLabResultsQuery struct {
	pageQuery
	MedicalRecordID string `form:"medicalRecordId"`
	TestType        string `form:"testType"`
	FromDate        string `form:"fromDate"`
	ToDate          string `form:"toDate"`
}

// CreateLabResult handles creating a new lab result.
func (h *LabResultHandler) CreateLabResult(c *gin.Context) {
	var req CreateLabResultRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	testDate, err := parseDateTime(req.TestDate)
	if err != nil {
		utils.BadRequest(c, "testDate debe ser una fecha válida (YYYY-MM-DD o ISO 8601)")
		return
	}

	var record models.MedicalRecord
	if err := h.DB.WithContext(c.Request.Context()).Select("id").First(&record, "id = ?", req.MedicalRecordID).Error; err != nil {
		h.dbError(c, err, "Registro médico no encontrado", "Error al crear el resultado de laboratorio")
		return
	}

	labResult := models.LabResult{
		MedicalRecordID: req.MedicalRecordID,
		TestType:        req.TestType,
		Result:          req.Result,
		ReferenceRange:  req.ReferenceRange,
		LabName:         req.LabName,
		TestDate:        testDate,
		Comments:        req.Comments,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&labResult).Error; err != nil {
		h.dbError(c, err, "", "Error al crear el resultado de laboratorio")
		return
	}

	utils.Created(c, "Resultado de laboratorio creado exitosamente", labResult)
}

// GetLabResult handles fetching a single lab result.
func (h *LabResultHandler) GetLabResult(c *gin.Context) {
	var labResult models.LabResult
	if err := h.DB.WithContext(c.Request.Context()).First(&labResult, "id = ?", c.Param("id")).Error; err != nil {
		h.dbError(c, err, "Resultado de laboratorio no encontrado", "Error al obtener el resultado de laboratorio")
		return
	}
	utils.Success(c, "Resultado de laboratorio obtenido", labResult)
}

// ListLabResults handles listing lab results, newest test first.
func (h *LabResultHandler) ListLabResults(c *gin.Context) {
	var q listLabResultsQuery
	if !utils.BindQuery(c, &q) {
		return
	}

	query := h.DB.WithContext(c.Request.Context()).Model(&models.LabResult{})
	if q.MedicalRecordID != "" {
		query = query.Where("medical_record_id = ?", q.MedicalRecordID)
	}
	if q.TestType != "" {
		query = query.Where("LOWER(test_type) LIKE ?", "%"+strings.ToLower(q.TestType)+"%")
	}
	if q.FromDate != "" {
		from, err := parseDateTime(q.FromDate)
		if err != nil {
			utils.BadRequest(c, "fromDate debe ser una fecha válida")
			return
		}
		query = query.Where("test_date >= ?", from)
	}
	if q.ToDate != "" {
		to, err := parseDateTime(q.ToDate)
		if err != nil {
			utils.BadRequest(c, "toDate debe ser una fecha válida")
			return
		}
		query = query.Where("test_date <= ?", to)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		h.dbError(c, err, "", "Error al listar los resultados de laboratorio")
		return
	}

	page := q.page().Normalize(10, 100)
	var labResults []models.LabResult
	if err := query.Order("test_date desc").Offset(page.Offset()).Limit(page.Limit).Find(&labResults).Error; err != nil {
		h.dbError(c, err, "", "Error al listar los resultados de laboratorio")
		return
	}

	utils.Paginated(c, "Resultados de laboratorio obtenidos", labResults, newPagination(total, page))
}

// UpdateLabResult handles partial updates of a lab result.
func (h *LabResultHandler) UpdateLabResult(c *gin.Context) {
	var req UpdateLabResultRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var labResult models.LabResult
	if err := h.DB.WithContext(c.Request.Context()).First(&labResult, "id = ?", c.Param("id")).Error; err != nil {
		h.dbError(c, err, "Resultado de laboratorio no encontrado", "Error al actualizar el resultado de laboratorio")
		return
	}

	if req.TestType != nil {
		labResult.TestType = *req.TestType
	}
	if req.Result != nil {
		labResult.Result = *req.Result
	}
	if req.ReferenceRange != nil {
		labResult.ReferenceRange = *req.ReferenceRange
	}
	if req.LabName != nil {
		labResult.LabName = *req.LabName
	}
	if req.Comments != nil {
		labResult.Comments = *req.Comments
	}
	if req.TestDate != nil && *req.TestDate != "" {
		testDate, err := parseDateTime(*req.TestDate)
		if err != nil {
			utils.BadRequest(c, "testDate debe ser una fecha válida (YYYY-MM-DD o ISO 8601)")
			return
		}
		labResult.TestDate = testDate
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(&labResult).Error; err != nil {
		h.dbError(c, err, "", "Error al actualizar el resultado de laboratorio")
		return
	}
	utils.Success(c, "Resultado de laboratorio actualizado exitosamente", labResult)
}

// DeleteLabResult handles removing a lab result.
func (h *LabResultHandler) DeleteLabResult(c *gin.Context) {
	result := h.DB.WithContext(c.Request.Context()).Delete(&models.LabResult{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		h.dbError(c, result.Error, "", "Error al eliminar el resultado de laboratorio")
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Resultado de laboratorio no encontrado")
		return
	}
	utils.Success(c, "Resultado de laboratorio eliminado exitosamente", nil)
}

// dbError answers 404 for a missing row when notFound is set, 500 otherwise.
func (h *LabResultHandler) dbError(c *gin.Context, err error, notFound, internal string) {
	if notFound != "" && errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, notFound)
		return
	}
	_ = c.Error(err)
	detail := ""
	if !h.production {
		detail = err.Error()
	}
	utils.ErrorWith(c, http.StatusInternalServerError, internal, "", nil, detail)
}
