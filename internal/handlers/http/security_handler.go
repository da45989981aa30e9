package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"communityhub/internal/core/domain"
)

type SecurityService interface {
	Status(ctx context.Context) domain.SecuritySnapshot
	TriggerBackup(ctx context.Context) (domain.TriggerResult, error)
	ResetDisasterMode() domain.BackupState
}

type SecurityHandler struct {
	security SecurityService
}

func NewSecurityHandler(security SecurityService) *SecurityHandler {
	return &SecurityHandler{security: security}
}

func (h *SecurityHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api/security")
	{
		api.GET("/status", h.GetStatus)
		api.POST("/trigger-backup", h.TriggerBackup)
		api.POST("/reset", h.Reset)
	}
}

// GetStatus returns the current snapshot; a CRITICAL level may fire an
// automatic backup on the way
func (h *SecurityHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.security.Status(c.Request.Context()))
}

// TriggerBackup always answers 200; the body says whether anything was sent
func (h *SecurityHandler) TriggerBackup(c *gin.Context) {
	result, _ := h.security.TriggerBackup(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

func (h *SecurityHandler) Reset(c *gin.Context) {
	c.JSON(http.StatusOK, h.security.ResetDisasterMode())
}
