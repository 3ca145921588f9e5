package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmssa/attendance-register/internal/service"
)

// MetricsHandler exposes the Prometheus scrape endpoint.
type MetricsHandler struct {
	scrape http.Handler
}

// NewMetricsHandler constructs the handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{scrape: metrics.Handler()}
}

// Prometheus serves the scrape endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.scrape.ServeHTTP(c.Writer, c.Request)
}
