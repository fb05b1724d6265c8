package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/netpong/backend/internal/match"
)

var startTime = time.Now()

const version = "1.2.0"

// HealthCheck returns server health status
func HealthCheck(matches *match.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"service":      "netpong-api",
			"version":      version,
			"uptime":       time.Since(startTime).String(),
			"live_matches": matches.Count(),
		})
	}
}
