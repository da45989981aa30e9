package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"communityhub/internal/core/domain"
)

type UploadService interface {
	MaxSize() int64
	Upload(ctx context.Context, fileName string, size int64, content io.Reader) (domain.UploadResult, error)
}

type ChatHandler struct {
	uploads   UploadService
	websocket http.HandlerFunc
}

// NewChatHandler wires media upload and, when ws is non-nil, the chat socket
func NewChatHandler(uploads UploadService, ws http.HandlerFunc) *ChatHandler {
	return &ChatHandler{uploads: uploads, websocket: ws}
}

func (h *ChatHandler) SetupRoutes(router gin.IRouter) {
	router.POST("/api/chat/upload", h.Upload)
	if h.websocket != nil {
		router.GET("/ws/chat", gin.WrapF(h.websocket))
	}
}

func (h *ChatHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploads.MaxSize()+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			_ = c.Error(appError(domain.ErrFileTooLarge))
			return
		}
		_ = c.Error(appError(domain.ErrMissingFile))
		return
	}

	file, err := header.Open()
	if err != nil {
		_ = c.Error(appError(domain.ErrMissingFile))
		return
	}
	defer file.Close()

	result, err := h.uploads.Upload(c.Request.Context(), header.Filename, header.Size, file)
	if err != nil {
		_ = c.Error(appError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}
