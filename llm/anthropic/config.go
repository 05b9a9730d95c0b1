package anthropic

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultAPIVersion = "2023-06-01"
	defaultModel      = "claude-3-5-sonnet-20241022"
	defaultMaxTokens  = 4096
)

// Config holds Anthropic-specific configuration settings
type Config struct {
	APIKey      string  // Anthropic API key
	Model       string  // Default: "claude-3-5-sonnet-20241022"
	Temperature float32 // Default: 0.0
	MaxRetries  int     // Default: 3
	MaxTokens   int     // Default: 4096 (the Messages API requires a value)
	BaseURL     string  // Default: "https://api.anthropic.com"
	APIVersion  string  // Default: "2023-06-01"
	Timeout     time.Duration
}

// NewConfigFromEnv creates config from environment variables with sensible defaults
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:      getEnvOrDefault("ANTHROPIC_API_KEY", ""),
		Model:       getEnvOrDefault("LLM_MODEL", defaultModel),
		Temperature: getEnvFloatOrDefault("LLM_TEMPERATURE", 0.0),
		MaxRetries:  getEnvIntOrDefault("ANTHROPIC_MAX_RETRIES", 3),
		MaxTokens:   getEnvIntOrDefault("ANTHROPIC_MAX_TOKENS", defaultMaxTokens),
		BaseURL:     getEnvOrDefault("ANTHROPIC_BASE_URL", defaultBaseURL),
		APIVersion:  getEnvOrDefault("ANTHROPIC_API_VERSION", defaultAPIVersion),
		Timeout:     time.Duration(getEnvIntOrDefault("ANTHROPIC_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid and complete
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required for the anthropic provider")
	}

	if c.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	if c.Temperature < 0.0 || c.Temperature > 1.0 {
		return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", c.Temperature)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries cannot be negative, got %d", c.MaxRetries)
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("maxTokens must be positive, got %d", c.MaxTokens)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
