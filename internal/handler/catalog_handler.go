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

// CatalogHandler serves the public catalog and the gated lesson content.
type CatalogHandler struct {
	catalog *service.CatalogService
	access  *service.AccessService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, access *service.AccessService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, access: access}
}

// List godoc
// @Summary List published subjects of one kind
// @Tags Catalog
// @Produce json
// @Param kind path string true "Subject kind (class, course, mentorship)"
// @Param q query string false "Title search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /catalog/{kind} [get]
func (h *CatalogHandler) List(c *gin.Context) {
	var filter models.SubjectFilter
	filter.Search = c.Query("q")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	subjects, pagination, err := h.catalog.List(c.Request.Context(), subjectKindParam(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, pagination)
}

// Get godoc
// @Summary Get one published subject
// @Tags Catalog
// @Produce json
// @Param kind path string true "Subject kind"
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /catalog/{kind}/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	subject, err := h.catalog.Get(c.Request.Context(), subjectKindParam(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Lessons godoc
// @Summary List a course's lessons without content
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/lessons [get]
func (h *CatalogHandler) Lessons(c *gin.Context) {
	lessons, err := h.catalog.Lessons(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// Lesson godoc
// @Summary Get one lesson's content
// @Description Requires a confirmed enrollment unless the lesson is a free preview.
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/lessons/{lessonId} [get]
func (h *CatalogHandler) Lesson(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	lesson, err := h.access.Lesson(c.Request.Context(), c.Param("id"), c.Param("lessonId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Access godoc
// @Summary Check whether the caller may view a subject's content
// @Tags Catalog
// @Produce json
// @Param kind path string true "Subject kind"
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog/{kind}/{id}/access [get]
func (h *CatalogHandler) Access(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	kind := subjectKindParam(c)
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind"))
		return
	}
	allowed, err := h.access.HasAccess(c.Request.Context(), kind, claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"access": allowed}, nil)
}
