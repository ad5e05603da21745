package config

import (
	"os"
	"strconv"
	"time"

	"promptlab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	AI       AIConfig
	Server   ServerConfig
	Run      RunConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// AIConfig holds LLM provider settings for the completion producer
type AIConfig struct {
	OpenAIKey    string
	Model        string
	BaseURL      string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// RunConfig holds experiment execution defaults
type RunConfig struct {
	Parallelism int
}

// Load builds the configuration from environment variables. Callers load
// .env into the environment first (main does this via godotenv).
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		AI: AIConfig{
			OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:        envOr("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:      envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature:  envFloat("AI_TEMPERATURE", 0.7),
			MaxTokens:    envInt("AI_MAX_TOKENS", 500),
			Timeout:      time.Duration(envInt("AI_TIMEOUT_MS", 120000)) * time.Millisecond,
			MaxAttempts:  envInt("AI_MAX_ATTEMPTS", 3),
			RetryBackoff: time.Duration(envInt("AI_RETRY_BACKOFF_MS", 2000)) * time.Millisecond,
		},
		Server: ServerConfig{
			Port:    envOr("PORT", "8080"),
			GinMode: envOr("GIN_MODE", "release"),
		},
		Run: RunConfig{
			Parallelism: envInt("RUN_PARALLELISM", 1),
		},
	}

	if cfg.AI.MaxAttempts < 1 {
		return nil, errors.ConfigInvalid("AI_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.Run.Parallelism < 1 {
		return nil, errors.ConfigInvalid("RUN_PARALLELISM must be at least 1")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
