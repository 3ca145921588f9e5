package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kmssa/attendance-register/internal/dto"
	"github.com/kmssa/attendance-register/internal/models"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
	"github.com/kmssa/attendance-register/pkg/response"
)

type scanIngester interface {
	IngestScan(ctx context.Context, decodedText string) (*models.AttendanceRecord, error)
	SubmitScan(decodedText string) (string, error)
}

// ScanHandler accepts decoded QR payloads from scanning clients.
type ScanHandler struct {
	ingest scanIngester
}

// NewScanHandler constructs the handler.
func NewScanHandler(ingest scanIngester) *ScanHandler {
	return &ScanHandler{ingest: ingest}
}

// Ingest godoc
// @Summary Ingest one decoded QR payload
// @Tags Scan
// @Accept json
// @Produce json
// @Param request body dto.ScanRequest true "Decoded QR text"
// @Success 201 {object} response.Envelope
// @Router /scan [post]
func (h *ScanHandler) Ingest(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "payload is required"))
		return
	}
	record, err := h.ingest.IngestScan(c.Request.Context(), req.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Queue godoc
// @Summary Queue one decoded QR payload on the scan feed
// @Tags Scan
// @Accept json
// @Produce json
// @Param request body dto.ScanRequest true "Decoded QR text"
// @Success 202 {object} response.Envelope
// @Router /scan/queue [post]
func (h *ScanHandler) Queue(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "payload is required"))
		return
	}
	id, err := h.ingest.SubmitScan(req.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.ScanQueuedResponse{SubmissionID: id})
}
