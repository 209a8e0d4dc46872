package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"medical-records-service/internal/middleware"
	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
	"medical-records-service/internal/services"
	"medical-records-service/internal/utils"
)

// DocumentHandler handles standalone patient documents.
type DocumentHandler struct {
	errorResponder
	service *services.DocumentService
}

func NewDocumentHandler(service *services.DocumentService, production bool) *DocumentHandler {
	return &DocumentHandler{errorResponder: errorResponder{production}, service: service}
}

type UploadDocumentRequest struct {
	PatientID       string `form:"patientId"`
	MedicalRecordID string `form:"medicalRecordId"`
	DiagnosticID    string `form:"diagnosticId"`
	Category        string `form:"category"`
	Description     string `form:"description" validate:"omitempty,max=2000"`
	Tags            string `form:"tags"`
}

type listDocumentsQuery struct {
	pageQuery
	MedicalRecordID string `form:"medicalRecordId"`
	DiagnosticID    string `form:"diagnosticId"`
	Category        string `form:"category"`
	MimeType        string `form:"mimeType"`
	Query           string `form:"q"`
	PageSize        int    `form:"pageSize" validate:"gte=0,lte=100"`
}

// UploadDocument expects the upload middleware to have staged "document".
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var req UploadDocumentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	document, err := h.service.Upload(c.Request.Context(), middleware.GetActor(c), services.UploadDocumentInput{
		PatientID:       req.PatientID,
		MedicalRecordID: req.MedicalRecordID,
		DiagnosticID:    req.DiagnosticID,
		Category:        req.Category,
		Description:     req.Description,
		Tags:            req.Tags,
		Files:           middleware.GetUploadBatch(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, "Documento subido exitosamente", document)
}

func (h *DocumentHandler) ListPatientDocuments(c *gin.Context) {
	var q listDocumentsQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = q.PageSize
	}
	filter := repositories.DocumentFilter{
		PatientID:       c.Param("patientId"),
		MedicalRecordID: q.MedicalRecordID,
		DiagnosticID:    q.DiagnosticID,
		Category:        models.DocumentCategory(strings.ToUpper(q.Category)),
		MimeType:        q.MimeType,
		Query:           q.Query,
		Page:            q.page().Normalize(20, 100),
	}
	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Paginated(c, "Documentos obtenidos", items, newPagination(total, filter.Page))
}

// DownloadDocument streams the stored file inline under its original name.
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	document, err := h.service.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Type", document.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, document.Filename))
	c.File(document.FilePath)
}

func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Documento eliminado", nil)
}
