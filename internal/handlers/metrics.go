package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/awidyan/homeboard/internal/metrics"
)

// MetricsHandler serves host and container status for dashboard widgets.
type MetricsHandler struct{}

// NewMetricsHandler creates a new MetricsHandler instance.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// GetSystem returns current host metrics.
// GET /api/metrics/system
func (h *MetricsHandler) GetSystem(c *gin.Context) {
	systemMetrics, err := metrics.GetSystemMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, systemMetrics)
}

// GetDocker returns container status; hosts without Docker report
// available=false rather than an error.
// GET /api/metrics/docker
func (h *MetricsHandler) GetDocker(c *gin.Context) {
	dockerMetrics, err := metrics.GetDockerMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dockerMetrics)
}
