package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/netpong/backend/internal/api/handlers"
	"github.com/netpong/backend/internal/config"
	"github.com/netpong/backend/internal/match"
	"github.com/netpong/backend/internal/middleware"
	"github.com/netpong/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, matches *match.Manager, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	wsHandler := ws.NewHandler(matches)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(matches))

		m := v1.Group("/match")
		{
			m.POST("", handlers.CreateMatch(matches))
			m.GET("/:code", handlers.GetMatchStatus(matches))
			m.GET("/:code/ws", wsHandler.HandleWebSocket)
		}
	}
}
