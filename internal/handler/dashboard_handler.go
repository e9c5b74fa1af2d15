package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/site-fence-backend-go/internal/service"
	"github.com/jengzang/site-fence-backend-go/pkg/response"
)

// DashboardHandler serves the dashboard counters
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary handles GET /api/v1/dashboard/summary
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to get dashboard summary", err)
		return
	}

	response.Success(c, summary)
}
