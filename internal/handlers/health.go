package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health. The logo cache is process-local, so the
// process being able to answer is the whole check; the counters are
// included for operators.
func (h *LogoHandler) Health(c *gin.Context) {
	stats := h.svc.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"entries":    stats.Entries,
		"failures":   stats.Failures,
		"preloading": stats.Preloading,
	})
}
