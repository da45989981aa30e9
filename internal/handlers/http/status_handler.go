package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"communityhub/internal/core/domain"
)

type StatusService interface {
	Lookup(ctx context.Context, host, port string) (domain.ServerStatus, error)
}

type StatusHandler struct {
	status StatusService
}

func NewStatusHandler(status StatusService) *StatusHandler {
	return &StatusHandler{status: status}
}

func (h *StatusHandler) SetupRoutes(router gin.IRouter) {
	router.GET("/api/status", h.GetStatus)
}

// GetStatus proxies the game server status. Failures keep the
// {online:false, error} body the status widget renders.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	status, err := h.status.Lookup(c.Request.Context(), c.Query("host"), c.Query("port"))
	if err != nil {
		appErr := appError(err)
		_ = c.Error(appErr)
		code := http.StatusInternalServerError
		if appErr.HTTPStatus == http.StatusBadRequest {
			code = http.StatusBadRequest
		}
		c.JSON(code, gin.H{"online": false, "error": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, status)
}
