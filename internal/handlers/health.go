package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medical-records-service/internal/utils"
)

// Health reports liveness without touching the database.
func Health(port string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"ts":      time.Now().UTC().Format(time.RFC3339),
			"service": utils.ServiceName,
			"port":    port,
		})
	}
}
