package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medical-records-service/internal/repositories"
	"medical-records-service/internal/services"
	"medical-records-service/internal/utils"
)

// errorResponder writes service failures in the standard envelope. The raw
// cause is attached as "detail" unless running in production.
type errorResponder struct {
	production bool
}

func (e errorResponder) fail(c *gin.Context, err error) {
	svcErr := services.AsError(err)
	if svcErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	detail := ""
	if !e.production && svcErr.Err != nil {
		detail = svcErr.Err.Error()
	}
	utils.ErrorWith(c, svcErr.Status, svcErr.Message, svcErr.Code, svcErr.Details, detail)
}

type pageQuery struct {
	Page  int `form:"page" validate:"gte=0"`
	Limit int `form:"limit" validate:"gte=0,lte=100"`
}

func (q pageQuery) page() repositories.Page {
	return repositories.Page{Page: q.Page, Limit: q.Limit}
}

type pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

func newPagination(total int64, page repositories.Page) pagination {
	p := pagination{Total: total, Page: page.Page, Limit: page.Limit}
	if page.Limit > 0 {
		p.Pages = (total + int64(page.Limit) - 1) / int64(page.Limit)
	}
	return p
}
