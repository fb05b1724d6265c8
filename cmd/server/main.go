package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/netpong/backend/internal/api"
	"github.com/netpong/backend/internal/config"
	"github.com/netpong/backend/internal/match"
	"github.com/netpong/backend/internal/redis"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize Redis (optional; matches run fine without it)
	var events *match.Events
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		events = match.NewEvents(rdb)
		log.Println("[REDIS] match event publishing enabled")
	} else {
		events = match.NewEvents(nil)
		log.Println("[REDIS] REDIS_URL not set - match event publishing disabled")
	}

	// Initialize the match manager and its reaper
	settings := match.Settings{
		TickInterval:     time.Duration(cfg.TickIntervalMs) * time.Millisecond,
		BroadcastEvery:   cfg.BroadcastEvery,
		CountdownSeconds: cfg.CountdownSeconds,
		RestartTimeout:   time.Duration(cfg.RestartTimeoutSeconds) * time.Second,
	}
	matches := match.NewManager(settings, events)
	matches.StartReaper(context.Background(),
		time.Duration(cfg.ReaperIntervalSeconds)*time.Second,
		time.Duration(cfg.MatchIdleMinutes)*time.Minute)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, matches, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting NetPong server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
