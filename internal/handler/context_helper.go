package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/praktika-dev/praktika-api/internal/middleware"
	"github.com/praktika-dev/praktika-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext resolves the acting user for change-log attribution.
func actorFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return "system"
}
