package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kmssa/attendance-register/internal/dto"
	"github.com/kmssa/attendance-register/internal/models"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
	"github.com/kmssa/attendance-register/pkg/response"
)

type attendanceLedger interface {
	UpdateStatus(ctx context.Context, timestamp string, newStatus models.AttendanceStatus) error
	ResetDate(ctx context.Context, date string) error
	Filter(filter models.AttendanceFilter) []models.AttendanceRecord
	Recent(n int) []models.AttendanceRecord
}

type manualMarker interface {
	MarkManual(ctx context.Context, studentID string, status models.AttendanceStatus) (*models.AttendanceRecord, error)
}

// AttendanceHandler exposes the ledger over HTTP.
type AttendanceHandler struct {
	ledger attendanceLedger
	ingest manualMarker
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(ledger attendanceLedger, ingest manualMarker) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger, ingest: ingest}
}

// List godoc
// @Summary List attendance records with composable filters
// @Tags Attendance
// @Produce json
// @Param search query string false "Case-insensitive match on name or student ID"
// @Param date query string false "Exact date (YYYY-MM-DD)"
// @Param status query string false "Present, Absent or all"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{
		Search: c.Query("search"),
		Date:   c.Query("date"),
		Status: c.Query("status"),
	}
	records := h.ledger.Filter(filter)
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}

// Recent godoc
// @Summary Most recent attendance records
// @Tags Attendance
// @Produce json
// @Param limit query int false "Number of records (default 10)"
// @Success 200 {object} response.Envelope
// @Router /attendance/recent [get]
func (h *AttendanceHandler) Recent(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	response.JSON(c, http.StatusOK, h.ledger.Recent(limit))
}

// Mark godoc
// @Summary Record attendance for a roster student
// @Tags Attendance
// @Accept json
// @Produce json
// @Param request body dto.ManualMarkRequest true "Student ID and status"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.ManualMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "studentId and status are required"))
		return
	}
	record, err := h.ingest.MarkManual(c.Request.Context(), req.StudentID, models.AttendanceStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// UpdateStatus godoc
// @Summary Correct the status of an existing record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param timestamp path string true "Record timestamp (identity key)"
// @Param request body dto.StatusUpdateRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /attendance/{timestamp} [patch]
func (h *AttendanceHandler) UpdateStatus(c *gin.Context) {
	var req dto.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "status is required"))
		return
	}
	timestamp := c.Param("timestamp")
	if err := h.ledger.UpdateStatus(c.Request.Context(), timestamp, models.AttendanceStatus(req.Status)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"timestamp": timestamp, "status": req.Status})
}

// Reset godoc
// @Summary Remove every record for one date
// @Tags Attendance
// @Produce json
// @Param date query string true "Date to clear (YYYY-MM-DD)"
// @Success 204 "No Content"
// @Router /attendance [delete]
func (h *AttendanceHandler) Reset(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	if err := h.ledger.ResetDate(c.Request.Context(), date); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
