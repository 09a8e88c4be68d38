package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yigit/musicschool/internal/app/models/dto"
	"github.com/yigit/musicschool/internal/app/services"
)

// StatusController serves liveness and backend status
type StatusController struct {
	statusService *services.StatusService
}

// NewStatusController creates a new StatusController
func NewStatusController(statusService *services.StatusService) *StatusController {
	return &StatusController{statusService: statusService}
}

// Health reports that the process is up
// @Summary Health check
// @Tags status
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (c *StatusController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// Ping answers pong
// @Summary Ping
// @Tags status
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ping [get]
func (c *StatusController) Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Storage pings the key-value backend
// @Summary Storage status
// @Tags status
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.StorageStatusResponse} "Backend reachable"
// @Failure 503 {object} dto.APIResponse{data=dto.StorageStatusResponse} "Backend unreachable"
// @Router /status/storage [get]
func (c *StatusController) Storage(ctx *gin.Context) {
	status := c.statusService.Storage(ctx.Request.Context())
	code := http.StatusOK
	if !status.Connected {
		code = http.StatusServiceUnavailable
	}
	ctx.JSON(code, dto.APIResponse{
		Success:   status.Connected,
		Data:      status,
		Timestamp: time.Now(),
	})
}
