package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Server
	Port        string
	FrontendURL string

	// Redis (optional; empty disables match event publishing)
	RedisURL string

	// Match loop
	TickIntervalMs        int
	BroadcastEvery        int
	CountdownSeconds      int
	RestartTimeoutSeconds int

	// Housekeeping
	MatchIdleMinutes      int
	ReaperIntervalSeconds int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Match loop
		TickIntervalMs:        getEnvInt("MATCH_TICK_INTERVAL_MS", 16),
		BroadcastEvery:        getEnvInt("MATCH_BROADCAST_EVERY", 3),
		CountdownSeconds:      getEnvInt("MATCH_COUNTDOWN_SECONDS", 3),
		RestartTimeoutSeconds: getEnvInt("MATCH_RESTART_TIMEOUT_SECONDS", 60),

		// Housekeeping
		MatchIdleMinutes:      getEnvInt("MATCH_IDLE_MINUTES", 10),
		ReaperIntervalSeconds: getEnvInt("MATCH_REAPER_INTERVAL_SECONDS", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
