package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/service"
	"github.com/jengzang/site-fence-backend-go/pkg/response"
)

// AlarmHandler handles HTTP requests for alarm records
type AlarmHandler struct {
	service *service.AlarmService
}

// NewAlarmHandler creates a new alarm handler
func NewAlarmHandler(service *service.AlarmService) *AlarmHandler {
	return &AlarmHandler{service: service}
}

// List handles GET /api/v1/alarms
func (h *AlarmHandler) List(c *gin.Context) {
	var filter models.AlarmFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	alarms, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, "Failed to get alarms", err)
		return
	}

	response.Success(c, alarms)
}

// Get handles GET /api/v1/alarms/:id
func (h *AlarmHandler) Get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	alarm, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, "Failed to get alarm", err)
		return
	}

	response.Success(c, alarm)
}

// Update handles PUT /api/v1/alarms/:id
func (h *AlarmHandler) Update(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var patch models.AlarmPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "Invalid alarm patch", err)
		return
	}

	alarm, err := h.service.Update(c.Request.Context(), id, &patch)
	if err != nil {
		writeError(c, "Failed to update alarm", err)
		return
	}

	response.Success(c, alarm)
}
