package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/aeropoint/academy-api/internal/middleware"
	"github.com/aeropoint/academy-api/internal/models"
)

// claimsFromContext returns the caller's JWT claims, or nil when the
// route ran without the JWT middleware (public endpoints).
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, _ := c.Get(middleware.ContextUserKey)
	claims, _ := value.(*models.JWTClaims)
	return claims
}
