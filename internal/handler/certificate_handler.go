package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ju10/academy-api/internal/service"
	appErrors "github.com/ju10/academy-api/pkg/errors"
	"github.com/ju10/academy-api/pkg/response"
)

// CertificateHandler exposes certificate lookup and download.
type CertificateHandler struct {
	certificates *service.CertificateService
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(certificates *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// Verify godoc
// @Summary Verify a certificate by its public code
// @Tags Certificates
// @Produce json
// @Param code path string true "Verification code"
// @Success 200 {object} response.Envelope
// @Router /certificates/verify/{code} [get]
func (h *CertificateHandler) Verify(c *gin.Context) {
	cert, err := h.certificates.Verify(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cert, nil)
}

// ListMine godoc
// @Summary List the caller's certificates
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /certificates [get]
func (h *CertificateHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	certs, err := h.certificates.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certs, nil)
}

// Download godoc
// @Summary Download the caller's certificate as PDF
// @Tags Certificates
// @Produce application/pdf
// @Param code path string true "Verification code"
// @Success 200
// @Security BearerAuth
// @Router /certificates/download/{code} [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	pdf, cert, err := h.certificates.Download(c.Request.Context(), c.Param("code"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", cert.Code))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
