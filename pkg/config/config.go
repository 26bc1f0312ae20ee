package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment         string
	ServerPort          int
	LogLevel            string
	JWTSecret           string
	TokenTTL            time.Duration
	StoreDriver         string // memory or postgres
	PostgresHost        string
	PostgresPort        int
	PostgresUser        string
	PostgresPassword    string
	PostgresDatabase    string
	PostgresSSLMode     string
	RateLimitPerMinute  int
	ReminderInterval    time.Duration
	ReminderHorizonDays int
	CORSAllowedOrigins  []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	tokenTTLMinutes, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %w", err)
	}

	pgPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid POSTGRES_PORT: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	reminderMinutes, err := strconv.Atoi(getEnv("REMINDER_INTERVAL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_INTERVAL_MINUTES: %w", err)
	}

	horizonDays, err := strconv.Atoi(getEnv("REMINDER_HORIZON_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_HORIZON_DAYS: %w", err)
	}

	driver := getEnv("STORE_DRIVER", "memory")
	if driver != "memory" && driver != "postgres" {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: must be memory or postgres", driver)
	}

	return &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		ServerPort:          port,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		JWTSecret:           getEnv("JWT_SECRET", "hearing-test-secret-key"),
		TokenTTL:            time.Duration(tokenTTLMinutes) * time.Minute,
		StoreDriver:         driver,
		PostgresHost:        getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:        pgPort,
		PostgresUser:        getEnv("POSTGRES_USER", "audiometry"),
		PostgresPassword:    getEnv("POSTGRES_PASSWORD", "dev"),
		PostgresDatabase:    getEnv("POSTGRES_DB", "audiometry"),
		PostgresSSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
		RateLimitPerMinute:  rateLimit,
		ReminderInterval:    time.Duration(reminderMinutes) * time.Minute,
		ReminderHorizonDays: horizonDays,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
