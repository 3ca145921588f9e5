package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kmssa/attendance-register/internal/models"
	"github.com/kmssa/attendance-register/pkg/response"
)

type summaryProvider interface {
	DailySummary(ctx context.Context, date string) (*models.DailySummary, bool, error)
}

// DashboardHandler serves aggregate views over the ledger.
type DashboardHandler struct {
	stats summaryProvider
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(stats summaryProvider) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

// Summary godoc
// @Summary Daily attendance summary
// @Tags Dashboard
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	start := time.Now()
	summary, cacheHit, err := h.stats.DailySummary(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{
		"cache_hit":          cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
	response.JSON(c, http.StatusOK, summary, meta)
}
