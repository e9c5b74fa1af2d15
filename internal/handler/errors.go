package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/service"
	"github.com/jengzang/site-fence-backend-go/pkg/response"
)

// writeError maps service errors onto HTTP status codes
func writeError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, service.ErrDeviceNotFound),
		errors.Is(err, service.ErrFenceNotFound),
		errors.Is(err, service.ErrRegionNotFound),
		errors.Is(err, service.ErrAlarmNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, models.ErrValidation):
		response.BadRequest(c, message, err)
	default:
		response.InternalError(c, message, err)
	}
}

// int64Param parses a positive integer path parameter
func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid "+name, err)
		return 0, false
	}
	return id, true
}
