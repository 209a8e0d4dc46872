package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceName is echoed in every response body.
const ServiceName = "medical-records-service"

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status     int            `json:"status"`
	Message    string         `json:"message"`
	Data       interface{}    `json:"data,omitempty"`
	Pagination interface{}    `json:"pagination,omitempty"`
	Error      string         `json:"error,omitempty"`
	Code       string         `json:"code,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	Service    string         `json:"service"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
		Service: ServiceName,
	})
}

// Paginated sends a page of results together with its pagination block.
func Paginated(c *gin.Context, message string, data interface{}, pagination interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:     http.StatusOK,
		Message:    message,
		Data:       data,
		Pagination: pagination,
		Service:    ServiceName,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
		Service: ServiceName,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: errorMessage,
		Error:   http.StatusText(statusCode),
		Service: ServiceName,
	})
}

// ErrorWith sends an error response carrying a code and structured details.
// detail is the raw cause and is only set outside production.
func ErrorWith(c *gin.Context, statusCode int, message, code string, details map[string]any, detail string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: message,
		Error:   http.StatusText(statusCode),
		Code:    code,
		Details: details,
		Detail:  detail,
		Service: ServiceName,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}
