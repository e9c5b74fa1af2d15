package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/service"
	"github.com/jengzang/site-fence-backend-go/pkg/response"
)

// FenceHandler handles HTTP requests for electronic fences
type FenceHandler struct {
	service *service.FenceService
	monitor *service.MonitorService
}

// NewFenceHandler creates a new fence handler
func NewFenceHandler(service *service.FenceService, monitor *service.MonitorService) *FenceHandler {
	return &FenceHandler{service: service, monitor: monitor}
}

// CheckStatusRequest is a location report for one device
type CheckStatusRequest struct {
	DeviceID string   `json:"device_id" binding:"required"`
	Lat      *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng      *float64 `json:"lng" binding:"required,min=-180,max=180"`
}

// List handles GET /api/v1/fences
func (h *FenceHandler) List(c *gin.Context) {
	var filter models.FenceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	fences, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, "Failed to get fences", err)
		return
	}

	response.Success(c, fences)
}

// Get handles GET /api/v1/fences/:id
func (h *FenceHandler) Get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	fence, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, "Failed to get fence", err)
		return
	}

	response.Success(c, fence)
}

// Create handles POST /api/v1/fences
func (h *FenceHandler) Create(c *gin.Context) {
	var in models.FenceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid fence", err)
		return
	}

	fence, err := h.service.Create(c.Request.Context(), &in)
	if err != nil {
		writeError(c, "Failed to create fence", err)
		return
	}

	response.Created(c, fence)
}

// Update handles PUT /api/v1/fences/:id with partial-update semantics
func (h *FenceHandler) Update(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var patch models.FencePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "Invalid fence patch", err)
		return
	}

	fence, err := h.service.Update(c.Request.Context(), id, &patch)
	if err != nil {
		writeError(c, "Failed to update fence", err)
		return
	}

	response.Success(c, fence)
}

// Delete handles DELETE /api/v1/fences/:id
func (h *FenceHandler) Delete(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, "Failed to delete fence", err)
		return
	}

	response.Success(c, gin.H{"id": id})
}

// Recompute handles POST /api/v1/fences/:id/recompute
func (h *FenceHandler) Recompute(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	result, err := h.service.Recompute(c.Request.Context(), id)
	if err != nil {
		writeError(c, "Failed to recompute fence", err)
		return
	}

	response.Success(c, result)
}

// CheckStatus handles POST /api/v1/fences/check-status
func (h *FenceHandler) CheckStatus(c *gin.Context) {
	var req CheckStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid location report", err)
		return
	}

	result, err := h.monitor.CheckFenceStatus(c.Request.Context(), req.DeviceID, *req.Lat, *req.Lng)
	if err != nil {
		writeError(c, "Failed to check fence status", err)
		return
	}

	response.Success(c, result)
}
