// Package config handles application configuration management.
package config

import (
	"os"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Temporal  TemporalConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings for internal/legacystore.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// TemporalConfig holds Temporal workflow engine settings for internal/temporal.
type TemporalConfig struct {
	Host      string
	Port      int
	Namespace string
	TaskQueue string
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	OTELEndpoint   string
	PrometheusPort int
	ServiceName    string
}

// Load reads configuration from environment variables, falling back to
// development defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("DRIFT_ENV", "development"),
		Server: ServerConfig{
			HTTPPort:     8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("POSTGRES_HOST", "localhost"),
			Port:         5432,
			User:         getEnv("POSTGRES_USER", "drift"),
			Password:     getEnv("POSTGRES_PASSWORD", ""),
			Database:     getEnv("POSTGRES_DB", "drift"),
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			MaxLifetime:  5 * time.Minute,
		},
		Temporal: TemporalConfig{
			Host:      getEnv("TEMPORAL_HOST", "localhost"),
			Port:      7233,
			Namespace: "drift",
			TaskQueue: "drift-gate-runs",
		},
		Telemetry: TelemetryConfig{
			OTELEndpoint:   getEnv("OTEL_ENDPOINT", "http://localhost:4317"),
			PrometheusPort: 9090,
			ServiceName:    "drift",
		},
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
