package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ju10/academy-api/internal/service"
	appErrors "github.com/ju10/academy-api/pkg/errors"
	"github.com/ju10/academy-api/pkg/response"
)

// EventHandler exposes live event listing and registration.
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// List godoc
// @Summary List upcoming published events
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.events.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Get godoc
// @Summary Get one published event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Register godoc
// @Summary Register for an event
// @Description Members register with their token; externals submit name,
// @Description email and phone. No account is created for externals.
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.EventRegisterRequest false "External participant details"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/register [post]
func (h *EventHandler) Register(c *gin.Context) {
	eventID := c.Param("id")

	if claims := claimsFromContext(c); claims != nil {
		reg, err := h.events.RegisterMember(c.Request.Context(), eventID, claims)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, reg)
		return
	}

	var req service.EventRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.events.RegisterExternal(c.Request.Context(), eventID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}
