package handlers

import (
	"net/http"

	"github.com/devlanding/leads-api/internal/services"
	"github.com/devlanding/leads-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthHandler struct {
	checker services.HealthChecker
}

func NewHealthHandler(checker services.HealthChecker) *HealthHandler {
	return &HealthHandler{
		checker: checker,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	if h.checker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "database pool not initialized",
		})
		return
	}

	if err := h.checker.HealthCheck(c.Request.Context()); err != nil {
		logger.Warn("Healthcheck failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
