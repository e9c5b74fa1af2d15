package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/service"
	"github.com/jengzang/site-fence-backend-go/pkg/response"
)

// DeviceHandler handles HTTP requests for devices
type DeviceHandler struct {
	service *service.DeviceService
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(service *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// List handles GET /api/v1/devices
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to get devices", err)
		return
	}

	response.Success(c, devices)
}

// Get handles GET /api/v1/devices/:id
func (h *DeviceHandler) Get(c *gin.Context) {
	device, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to get device", err)
		return
	}

	response.Success(c, device)
}

// Register handles POST /api/v1/devices
func (h *DeviceHandler) Register(c *gin.Context) {
	var in models.DeviceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid device", err)
		return
	}

	device, err := h.service.Register(c.Request.Context(), &in)
	if err != nil {
		writeError(c, "Failed to register device", err)
		return
	}

	response.Success(c, device)
}
