package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"communityhub/internal/core/domain"
	apperrors "communityhub/pkg/errors"
)

type ReportService interface {
	Submit(ctx context.Context, input domain.ReportInput) (*domain.Report, error)
	List(ctx context.Context) ([]*domain.Report, error)
}

type MetaService interface {
	List(ctx context.Context, category string) ([]domain.MetaItem, error)
	Append(ctx context.Context, category, title, description string) (domain.MetaItem, error)
}

const (
	// multipartOverhead is allowed on top of the file limit for headers and
	// the other form fields
	multipartOverhead = 1 << 20
	maxFormMemory     = 32 << 20
)

// ContentHandler serves abuse reports and the meta content lists
type ContentHandler struct {
	reports     ReportService
	meta        MetaService
	maxEvidence int64
}

func NewContentHandler(reports ReportService, meta MetaService, maxEvidence int64) *ContentHandler {
	return &ContentHandler{reports: reports, meta: meta, maxEvidence: maxEvidence}
}

func (h *ContentHandler) SetupRoutes(router gin.IRouter) {
	router.POST("/report", h.SubmitReport)

	api := router.Group("/api")
	{
		api.GET("/reports", h.ListReports)
		for _, category := range domain.Categories {
			api.GET("/"+string(category), h.listMeta(category))
			api.POST("/"+string(category), h.appendMeta(category))
		}
	}
}

func (h *ContentHandler) SubmitReport(c *gin.Context) {
	if h.maxEvidence > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxEvidence+multipartOverhead)
	}
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.reportFailure(c, appError(domain.ErrFileTooLarge))
			return
		}
		h.reportFailure(c, apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "invalid form data", http.StatusBadRequest))
		return
	}

	input := domain.ReportInput{
		Reporter: c.PostForm("reporter"),
		Reported: c.PostForm("reported"),
		Reason:   c.PostForm("reason"),
	}

	header, err := c.FormFile("evidence")
	switch {
	case err == nil:
		if h.maxEvidence > 0 && header.Size > h.maxEvidence {
			h.reportFailure(c, appError(domain.ErrFileTooLarge))
			return
		}
		file, err := header.Open()
		if err != nil {
			h.reportFailure(c, apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "unreadable evidence file", http.StatusBadRequest))
			return
		}
		defer file.Close()
		input.Evidence = &domain.Evidence{FileName: header.Filename, Size: header.Size, Content: file}
	case err == http.ErrMissingFile:
	default:
		h.reportFailure(c, apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "invalid form data", http.StatusBadRequest))
		return
	}

	report, err := h.reports.Submit(c.Request.Context(), input)
	if err != nil {
		h.reportFailure(c, appError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Report submitted",
		"reportId": report.ID,
	})
}

// reportFailure keeps the {success, message} shape the report form expects
func (h *ContentHandler) reportFailure(c *gin.Context, appErr *apperrors.AppError) {
	_ = c.Error(appErr)
	c.JSON(appErr.HTTPStatus, gin.H{
		"success": false,
		"message": appErr.Message,
	})
}

func (h *ContentHandler) ListReports(c *gin.Context) {
	reports, err := h.reports.List(c.Request.Context())
	if err != nil {
		h.reportFailure(c, appError(err))
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *ContentHandler) listMeta(category domain.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := h.meta.List(c.Request.Context(), string(category))
		if err != nil {
			_ = c.Error(appError(err))
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

type metaRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
}

func (h *ContentHandler) appendMeta(category domain.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req metaRequest
		if err := c.ShouldBind(&req); err != nil {
			_ = c.Error(apperrors.NewInvalidInputError("invalid request format"))
			return
		}

		item, err := h.meta.Append(c.Request.Context(), string(category), req.Title, req.Description)
		if err != nil {
			_ = c.Error(appError(err))
			return
		}
		c.JSON(http.StatusOK, item)
	}
}
