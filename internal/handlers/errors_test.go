package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-records-service/internal/repositories"
	"medical-records-service/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(production bool, err error) (int, map[string]any) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	errorResponder{production: production}.fail(c, err)

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestErrorResponderHidesDetailInProduction(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	code, body := respond(false, services.Internal("Error al crear diagnóstico", cause))
	require.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Error al crear diagnóstico", body["message"])
	assert.Equal(t, cause.Error(), body["detail"])

	_, body = respond(true, services.Internal("Error al crear diagnóstico", cause))
	assert.NotContains(t, body, "detail")
}

func TestErrorResponderKeepsCodeAndDetails(t *testing.T) {
	err := services.Validation("Prioridad inválida").WithCode("INVALID_PRIORITY").WithDetail("allowed", []string{"ROUTINE"})

	code, body := respond(false, err)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_PRIORITY", body["code"])
	assert.Equal(t, map[string]any{"allowed": []any{"ROUTINE"}}, body["details"])
}

func TestErrorResponderWrapsPlainErrors(t *testing.T) {
	code, _ := respond(true, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestNewPagination(t *testing.T) {
	p := newPagination(21, repositories.Page{Page: 2, Limit: 10})

	assert.Equal(t, int64(3), p.Pages)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, newPagination(0, repositories.Page{}).Pages, int64(0))
}

func TestParseDateTime(t *testing.T) {
	d, err := parseDateTime("2026-05-04")
	require.NoError(t, err)
	assert.Equal(t, 4, d.Day())

	d, err = parseDateTime("2026-05-04T10:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, 15, d.Hour())

	_, err = parseDateTime("04/05/2026")
	assert.Error(t, err)
}
