package ollama

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Ollama-specific configuration settings
type Config struct {
	Host        string  // Default: "http://localhost:11434"
	Model       string  // Default: "llama3.2"
	Temperature float32 // Default: 0.0
	MaxRetries  int     // Default: 3
	Timeout     time.Duration
}

// NewConfigFromEnv creates config from environment variables with sensible defaults
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		Host:        getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
		Model:       getEnvOrDefault("LLM_MODEL", "llama3.2"),
		Temperature: getEnvFloatOrDefault("LLM_TEMPERATURE", 0.0),
		MaxRetries:  getEnvIntOrDefault("OLLAMA_MAX_RETRIES", 3),
		Timeout:     time.Duration(getEnvIntOrDefault("OLLAMA_TIMEOUT_SECONDS", 120)) * time.Second,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid and complete
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("ollama host cannot be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries cannot be negative, got %d", c.MaxRetries)
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
