package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ju10/academy-api/internal/middleware"
	"github.com/ju10/academy-api/internal/models"
)

// claimsFromContext returns the authenticated claims set by the JWT
// middleware, or nil on anonymous requests.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

// subjectKindParam reads the :kind path segment shared by catalog and
// enrollment routes.
func subjectKindParam(c *gin.Context) models.SubjectKind {
	return models.SubjectKind(c.Param("kind"))
}
