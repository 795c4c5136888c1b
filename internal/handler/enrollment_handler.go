package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ju10/academy-api/internal/service"
	appErrors "github.com/ju10/academy-api/pkg/errors"
	"github.com/ju10/academy-api/pkg/response"
)

// EnrollmentHandler exposes the member-facing enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Create godoc
// @Summary Enroll in a subject
// @Description Creates a pending enrollment with a payment reference. The
// @Description profile fields are required and saved with the request.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param kind path string true "Subject kind (class, course, mentorship)"
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{kind} [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), subjectKindParam(c), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// ListMine godoc
// @Summary List the caller's enrollments for one kind
// @Tags Enrollments
// @Produce json
// @Param kind path string true "Subject kind"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{kind} [get]
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollments, err := h.enrollments.ListMine(c.Request.Context(), subjectKindParam(c), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// GetMine godoc
// @Summary Get the caller's enrollment for one subject
// @Tags Enrollments
// @Produce json
// @Param kind path string true "Subject kind"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{kind}/{subjectId} [get]
func (h *EnrollmentHandler) GetMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollment, err := h.enrollments.Get(c.Request.Context(), subjectKindParam(c), claims.UserID, c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
