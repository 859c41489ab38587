package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port  int
	Debug bool

	// Courses
	CoursesPath string
	DefaultLang string

	// Sample integrity
	GraderSecret string

	// Database; empty disables submission persistence
	DatabaseURL string

	// RabbitMQ; empty disables file grading dispatch
	RabbitMQURL string

	// Logging
	LogLevel string // debug, info, warn, error
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnvInt("PORT", 8080),
		Debug:        getEnvBool("DEBUG", false),
		CoursesPath:  getEnv("COURSES_PATH", "./courses"),
		DefaultLang:  getEnv("DEFAULT_LANG", "en"),
		GraderSecret: getEnv("GRADER_SECRET", "change-me-in-production"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RabbitMQURL:  getEnv("RABBITMQ_URL", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	// Validate required settings
	if cfg.GraderSecret == "change-me-in-production" && !cfg.Debug {
		return nil, fmt.Errorf("GRADER_SECRET must be set in production")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
