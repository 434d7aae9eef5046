package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort       int
	DatabasePath     string
	SessionTTL       time.Duration // lifetime of a newly issued session
	SessionRetention time.Duration // how long revoked/expired sessions are kept before the reaper deletes them
	ReapSchedule     string        // standard cron expression for the session reaper
	CORSOrigins      []string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	ttlHours, err := strconv.Atoi(getEnv("SESSION_TTL_HOURS", "720"))
	if err != nil {
		return nil, err
	}

	retentionHours, err := strconv.Atoi(getEnv("SESSION_RETENTION_HOURS", "24"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:       port,
		DatabasePath:     getEnv("DATABASE_PATH", "./portfolio.db"),
		SessionTTL:       time.Duration(ttlHours) * time.Hour,
		SessionRetention: time.Duration(retentionHours) * time.Hour,
		ReapSchedule:     getEnv("SESSION_REAP_SCHEDULE", "*/30 * * * *"),
		CORSOrigins:      parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
