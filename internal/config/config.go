package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Scheduling configuration
	Schedule ScheduleConfig

	// Notification gateway configuration
	Notify NotifyConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port             string
	Environment      string // development, staging, production
	LogLevel         string // debug, info, warn, error
	EnableRequestLog bool
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// ScheduleConfig holds the scheduling engine knobs. All times the engine
// reasons about are in the business timezone (IST).
type ScheduleConfig struct {
	ClosingBufferMinutes int // joins must finish this long before closing
	DelayThresholdMins   int // appointment delay beyond this triggers a notification
}

// NotifyConfig holds notification gateway configuration
type NotifyConfig struct {
	Mode       string // "dev" logs messages, "production" calls the gateway
	APIURL     string
	APIToken   string
	SenderID   string
	QueueSize  int // dispatcher buffer, messages beyond it are dropped
	TimeoutSec int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:             getEnv("PORT", "8080"),
			Environment:      getEnv("ENVIRONMENT", "development"),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Schedule: ScheduleConfig{
			ClosingBufferMinutes: getEnvAsInt("CLOSING_BUFFER_MINUTES", 10),
			DelayThresholdMins:   getEnvAsInt("DELAY_THRESHOLD_MINUTES", 10),
		},
		Notify: NotifyConfig{
			Mode:       getEnv("NOTIFY_MODE", "dev"),
			APIURL:     getEnv("NOTIFY_API_URL", ""),
			APIToken:   getEnv("NOTIFY_API_TOKEN", ""),
			SenderID:   getEnv("NOTIFY_SENDER_ID", "SalonFlow"),
			QueueSize:  getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			TimeoutSec: getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Schedule.ClosingBufferMinutes < 0 {
		return fmt.Errorf("CLOSING_BUFFER_MINUTES must not be negative")
	}

	if c.Schedule.DelayThresholdMins < 0 {
		return fmt.Errorf("DELAY_THRESHOLD_MINUTES must not be negative")
	}

	if c.Notify.Mode == "production" {
		if c.Notify.APIURL == "" {
			return fmt.Errorf("NOTIFY_API_URL is required in production mode")
		}
		if c.Notify.APIToken == "" {
			return fmt.Errorf("NOTIFY_API_TOKEN is required in production mode")
		}
	} else if c.Notify.Mode != "dev" {
		return fmt.Errorf("invalid notify mode: %s (must be 'dev' or 'production')", c.Notify.Mode)
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
