package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kmssa/attendance-register/internal/models"
	appErrors "github.com/kmssa/attendance-register/pkg/errors"
	"github.com/kmssa/attendance-register/pkg/response"
)

type rosterDirectory interface {
	Lookup(studentID string) (*models.Student, error)
	BadgeQR(studentID string, size int) ([]byte, error)
}

// StudentHandler exposes the read-only roster directory.
type StudentHandler struct {
	roster rosterDirectory
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(roster rosterDirectory) *StudentHandler {
	return &StudentHandler{roster: roster}
}

// Get godoc
// @Summary Look up a roster student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.roster.Lookup(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// BadgeQR godoc
// @Summary Render a student's registration payload as a QR PNG
// @Tags Students
// @Produce png
// @Param id path string true "Student ID"
// @Param size query int false "Image size in pixels (default 256)"
// @Success 200 {file} binary
// @Router /students/{id}/qr [get]
func (h *StudentHandler) BadgeQR(c *gin.Context) {
	size := 256
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 64 || parsed > 1024 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "size must be between 64 and 1024"))
			return
		}
		size = parsed
	}
	png, err := h.roster.BadgeQR(c.Param("id"), size)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
