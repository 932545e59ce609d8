// Package config loads daemon configuration: environment variables first,
// optionally overlaid by a YAML file whose changes can be watched at
// runtime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Backend connection
	BaseURL string `yaml:"base_url" validate:"required,url"`
	App     string `yaml:"app" validate:"required"`
	APIKey  string `yaml:"api_key"`

	// Server
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`

	// Request policy
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	ConflictRetry  int           `yaml:"conflict_retry" validate:"min=0,max=10"`
	RetryDelay     time.Duration `yaml:"retry_delay" validate:"gte=0"`

	// Pipeline timing
	SourceTimeLimit   time.Duration `yaml:"source_time_limit" validate:"gt=0"`
	GenerationStale   time.Duration `yaml:"generation_stale" validate:"gt=0"`
	CompletionTimeout time.Duration `yaml:"completion_timeout" validate:"gt=0"`
	SettingsDebounce  time.Duration `yaml:"settings_debounce" validate:"gt=0"`
	StreamRetry       time.Duration `yaml:"stream_retry" validate:"gt=0"`

	// Initial session
	Theme    string `yaml:"theme"`
	MaxDepth int    `yaml:"max_depth" validate:"min=1"`
}

// Load builds configuration from environment variables, then overlays the
// YAML file named by MINDMESH_CONFIG when present.
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:        getEnv("MINDMESH_BASE_URL", "http://localhost:8081"),
		App:            getEnv("MINDMESH_APP", "default"),
		APIKey:         getEnv("MINDMESH_API_KEY", ""),
		MetricsAddress: getEnv("MINDMESH_METRICS_ADDRESS", ":9090"),
		Environment:    getEnv("MINDMESH_ENVIRONMENT", "development"),
		LogLevel:       getEnv("MINDMESH_LOG_LEVEL", "info"),

		RequestTimeout: getEnvDuration("MINDMESH_REQUEST_TIMEOUT", 30*time.Second),
		ConflictRetry:  getEnvInt("MINDMESH_CONFLICT_RETRY", 2),
		RetryDelay:     getEnvDuration("MINDMESH_RETRY_DELAY", 300*time.Millisecond),

		SourceTimeLimit:   getEnvDuration("MINDMESH_SOURCE_TIME_LIMIT", 5*time.Minute),
		GenerationStale:   getEnvDuration("MINDMESH_GENERATION_STALE", 3*time.Minute),
		CompletionTimeout: getEnvDuration("MINDMESH_COMPLETION_TIMEOUT", 120*time.Second),
		SettingsDebounce:  getEnvDuration("MINDMESH_SETTINGS_DEBOUNCE", 500*time.Millisecond),
		StreamRetry:       getEnvDuration("MINDMESH_STREAM_RETRY", 5*time.Second),

		Theme:    getEnv("MINDMESH_THEME", "default"),
		MaxDepth: getEnvInt("MINDMESH_MAX_DEPTH", 3),
	}

	if path := os.Getenv("MINDMESH_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
