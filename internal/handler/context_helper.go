package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/archivebase/scanrepo/internal/middleware"
	"github.com/archivebase/scanrepo/internal/models"
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

// currentUser returns the username for audit trails, or "anonymous"
// when no token was presented.
func currentUser(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.Username
	}
	return "anonymous"
}
