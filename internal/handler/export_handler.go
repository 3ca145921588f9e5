package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmssa/attendance-register/internal/dto"
	"github.com/kmssa/attendance-register/internal/models"
	"github.com/kmssa/attendance-register/internal/service"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
	"github.com/kmssa/attendance-register/pkg/response"
)

type exporter interface {
	RenderCSV(filter models.AttendanceFilter) ([]byte, string, error)
	CreateJob(ctx context.Context, format models.ExportFormat, filter models.AttendanceFilter) (*models.ExportJob, error)
	GetJob(id string) (*models.ExportJob, error)
	ResolveDownload(token string) (*service.ExportDownload, error)
}

// ExportHandler serves CSV downloads and the asynchronous export pipeline.
type ExportHandler struct {
	exports exporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exporter) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// DownloadCSV godoc
// @Summary Download the ledger as CSV
// @Tags Exports
// @Produce text/csv
// @Param search query string false "Case-insensitive match on name or student ID"
// @Param date query string false "Exact date (YYYY-MM-DD)"
// @Param status query string false "Present, Absent or all"
// @Success 200 {file} binary
// @Router /attendance/export [get]
func (h *ExportHandler) DownloadCSV(c *gin.Context) {
	filter := models.AttendanceFilter{
		Search: c.Query("search"),
		Date:   c.Query("date"),
		Status: c.Query("status"),
	}
	payload, filename, err := h.exports.RenderCSV(filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// Create godoc
// @Summary Queue an asynchronous export
// @Tags Exports
// @Accept json
// @Produce json
// @Param request body dto.ExportRequest true "Format and optional filters"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format is required"))
		return
	}
	filter := models.AttendanceFilter{Search: req.Search, Date: req.Date, Status: req.Status}
	job, err := h.exports.CreateJob(c.Request.Context(), models.ExportFormat(req.Format), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	job, err := h.exports.GetJob(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// Download godoc
// @Summary Download a finished export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	contentType := "text/csv"
	if download.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, download.File)
}
