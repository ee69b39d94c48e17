// Package config reads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port                string
	ActivityTable       string // DynamoDB table; required by the Lambda binary
	SQLitePath          string
	ParamPrefix         string // SSM prefix for provider tokens; empty means use WAQIToken/OpenWeatherToken
	WAQIToken           string
	OpenWeatherToken    string
	DefaultLocation     string
	SessionTTL          time.Duration
	ReapInterval        time.Duration
	MaxMessageLength    int
	CollaboratorTimeout time.Duration
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		ActivityTable:       getEnv("ACTIVITY_TABLE", ""),
		SQLitePath:          getEnv("SQLITE_PATH", "./data/ecoassist.db"),
		ParamPrefix:         strings.TrimRight(getEnv("PARAM_PREFIX", ""), "/"),
		WAQIToken:           getEnv("WAQI_TOKEN", ""),
		OpenWeatherToken:    getEnv("OPENWEATHER_TOKEN", ""),
		DefaultLocation:     getEnv("DEFAULT_LOCATION", "London"),
		SessionTTL:          getEnvDuration("SESSION_TTL", 24*time.Hour),
		ReapInterval:        getEnvDuration("REAP_INTERVAL", time.Hour),
		MaxMessageLength:    getEnvInt("MAX_MESSAGE_LENGTH", 1000),
		CollaboratorTimeout: getEnvDuration("COLLABORATOR_TIMEOUT", 5*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings shared by every binary.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if strings.TrimSpace(c.DefaultLocation) == "" {
		return fmt.Errorf("DEFAULT_LOCATION cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("REAP_INTERVAL must be > 0")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be > 0")
	}
	if c.CollaboratorTimeout < 0 {
		return fmt.Errorf("COLLABORATOR_TIMEOUT must be >= 0")
	}
	return nil
}

// ValidateLambda adds the settings only the Lambda deployment needs.
func (c *Config) ValidateLambda() error {
	if c.ActivityTable == "" {
		return fmt.Errorf("ACTIVITY_TABLE cannot be empty")
	}
	if c.ParamPrefix == "" {
		return fmt.Errorf("PARAM_PREFIX cannot be empty")
	}
	return nil
}

// ValidateLocal adds the settings only the local binary needs.
func (c *Config) ValidateLocal() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
