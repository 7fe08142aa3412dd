package openai

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds OpenAI-compatible LLM configuration.
type Config struct {
	APIKey     string // API key for authentication
	BaseURL    string // Base URL (default: https://api.openai.com/v1)
	Model      string // Default model when an agent doesn't specify one
	MaxRetries int    // HTTP-level retry for transient errors only (default: 1)
}

// NewConfigFromEnv creates Config from environment variables.
// Expected env vars: LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, LLM_MAX_RETRIES
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:     getEnvOrDefault("LLM_API_KEY", ""),
		BaseURL:    getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:      getEnvOrDefault("LLM_MODEL", "gpt-4o"),
		MaxRetries: getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required. Set it in .env or environment")
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}
