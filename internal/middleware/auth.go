package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"medical-records-service/internal/models"
	"medical-records-service/internal/services"
	"medical-records-service/internal/utils"
)

const (
	ctxUserID     = "userID"
	ctxUserRole   = "userRole"
	ctxAuthHeader = "authHeader"
)

// AuthMiddleware creates a middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Token de autorización requerido")
			c.Abort()
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			utils.Unauthorized(c, "Formato de autorización inválido")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], jwtSecret)
		if err != nil {
			utils.Unauthorized(c, "Token inválido")
			c.Abort()
			return
		}

		userID := claims.Identity()
		if userID == "" {
			utils.BadRequest(c, "El token no contiene un identificador de usuario")
			c.Abort()
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, models.Role(strings.ToUpper(string(claims.Role))))
		c.Set(ctxAuthHeader, authHeader)

		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			utils.InternalServerError(c, "Rol de usuario no disponible")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "No tiene permisos para acceder a este recurso")
		c.Abort()
	}
}

// Helper function to get user ID from context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

// Helper function to get user role from context
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get(ctxUserRole)
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}

// GetActor assembles the authenticated caller for service calls.
func GetActor(c *gin.Context) services.Actor {
	id, _ := GetUserIDFromContext(c)
	role, _ := GetUserRoleFromContext(c)
	return services.Actor{ID: id, Role: role, AuthHeader: c.GetString(ctxAuthHeader)}
}
