package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ju10/academy-api/internal/models"
	"github.com/ju10/academy-api/internal/service"
	appErrors "github.com/ju10/academy-api/pkg/errors"
	"github.com/ju10/academy-api/pkg/response"
)

// AdminHandler exposes the back-office reconciliation endpoints: pending
// payment review, confirm/cancel transitions, certificate issuance and the
// revenue dashboard.
type AdminHandler struct {
	enrollments  *service.EnrollmentService
	certificates *service.CertificateService
	stats        *service.StatsService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(enrollments *service.EnrollmentService, certificates *service.CertificateService, stats *service.StatsService) *AdminHandler {
	return &AdminHandler{enrollments: enrollments, certificates: certificates, stats: stats}
}

// ListEnrollments godoc
// @Summary List enrollments for reconciliation
// @Tags Admin
// @Produce json
// @Param kind path string true "Subject kind"
// @Param status query string false "Filter by status (pending, paid, confirmed, cancelled)"
// @Param subjectId query string false "Filter by subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "Sort order (asc, desc)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{kind} [get]
func (h *AdminHandler) ListEnrollments(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.SubjectID = c.Query("subjectId")
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseWireStatus(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status filter"))
			return
		}
		filter.Status = status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), subjectKindParam(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Confirm godoc
// @Summary Confirm an enrollment payment
// @Description Marks a pending enrollment as settled after the payment is
// @Description verified on the processor's dashboard.
// @Tags Admin
// @Produce json
// @Param kind path string true "Subject kind"
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{kind}/{id}/confirm [put]
func (h *AdminHandler) Confirm(c *gin.Context) {
	enrollment, err := h.enrollments.Confirm(c.Request.Context(), subjectKindParam(c), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stats.InvalidateStats(c.Request.Context())
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Cancel godoc
// @Summary Cancel a pending enrollment
// @Tags Admin
// @Produce json
// @Param kind path string true "Subject kind"
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{kind}/{id}/cancel [put]
func (h *AdminHandler) Cancel(c *gin.Context) {
	enrollment, err := h.enrollments.Cancel(c.Request.Context(), subjectKindParam(c), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stats.InvalidateStats(c.Request.Context())
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// IssueCertificate godoc
// @Summary Issue a completion certificate for a settled enrollment
// @Tags Admin
// @Produce json
// @Param kind path string true "Subject kind"
// @Param id path string true "Enrollment ID"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{kind}/{id}/certificate [post]
func (h *AdminHandler) IssueCertificate(c *gin.Context) {
	cert, err := h.certificates.Issue(c.Request.Context(), subjectKindParam(c), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cert)
}

// Stats godoc
// @Summary Revenue dashboard
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.stats.AdminStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if stats.FromCache {
		meta = map[string]interface{}{"cache_hit": true}
	}
	response.JSON(c, http.StatusOK, stats, nil, meta)
}
