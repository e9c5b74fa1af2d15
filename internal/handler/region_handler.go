package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/service"
	"github.com/jengzang/site-fence-backend-go/pkg/response"
)

// RegionHandler handles HTTP requests for project regions
type RegionHandler struct {
	service *service.RegionService
}

// NewRegionHandler creates a new region handler
func NewRegionHandler(service *service.RegionService) *RegionHandler {
	return &RegionHandler{service: service}
}

// List handles GET /api/v1/regions
func (h *RegionHandler) List(c *gin.Context) {
	regions, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to get project regions", err)
		return
	}

	response.Success(c, regions)
}

// Get handles GET /api/v1/regions/:id
func (h *RegionHandler) Get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	region, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, "Failed to get project region", err)
		return
	}

	response.Success(c, region)
}

// Create handles POST /api/v1/regions
func (h *RegionHandler) Create(c *gin.Context) {
	var in models.RegionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid project region", err)
		return
	}

	region, err := h.service.Create(c.Request.Context(), &in)
	if err != nil {
		writeError(c, "Failed to create project region", err)
		return
	}

	response.Created(c, region)
}

// Update handles PUT /api/v1/regions/:id
func (h *RegionHandler) Update(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var patch models.RegionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "Invalid project region patch", err)
		return
	}

	region, err := h.service.Update(c.Request.Context(), id, &patch)
	if err != nil {
		writeError(c, "Failed to update project region", err)
		return
	}

	response.Success(c, region)
}

// Delete handles DELETE /api/v1/regions/:id
func (h *RegionHandler) Delete(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, "Failed to delete project region", err)
		return
	}

	response.Success(c, gin.H{"id": id})
}
