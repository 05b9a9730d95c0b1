package openai

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// APIType selects between the public OpenAI API and an Azure OpenAI deployment.
const (
	APITypeOpenAI = "openai"
	APITypeAzure  = "azure"
)

// Config holds OpenAI-specific configuration settings
type Config struct {
	APIKey      string  // OpenAI or Azure API key
	Model       string  // Default: "gpt-4o-mini"
	Temperature float32 // Default: 0.0 (deterministic SQL generation)
	MaxRetries  int     // Default: 3
	BaseURL     string  // Default: "https://api.openai.com/v1"
	OrgID       string  // Optional organization ID

	// Azure OpenAI settings, used when APIType == APITypeAzure. The deployment
	// name replaces the model in requests.
	APIType         string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string // Default: "2024-02-01"

	// Rate limiting configuration (optional)
	RateLimit         int           // Requests per minute, 0 = disabled (default)
	RateLimitInterval time.Duration // Rate limit window, default: 1 minute

	// Advanced settings
	MaxTokens int // Maximum tokens in response, 0 = no limit (default)
}

// NewConfigFromEnv creates config from environment variables with sensible defaults
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:            getEnvOrDefault("OPENAI_API_KEY", ""),
		Model:             getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		Temperature:       getEnvFloatOrDefault("LLM_TEMPERATURE", 0.0),
		MaxRetries:        getEnvIntOrDefault("OPENAI_MAX_RETRIES", 3),
		BaseURL:           getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OrgID:             getEnvOrDefault("OPENAI_ORG_ID", ""),
		APIType:           APITypeOpenAI,
		RateLimit:         getEnvIntOrDefault("OPENAI_RATE_LIMIT", 0),
		RateLimitInterval: time.Duration(getEnvIntOrDefault("OPENAI_RATE_LIMIT_INTERVAL_SECONDS", 60)) * time.Second,
		MaxTokens:         getEnvIntOrDefault("OPENAI_MAX_TOKENS", 0),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// NewAzureConfigFromEnv creates an Azure OpenAI config from environment variables
func NewAzureConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:            getEnvOrDefault("AZURE_OPENAI_API_KEY", ""),
		Model:             getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		Temperature:       getEnvFloatOrDefault("LLM_TEMPERATURE", 0.0),
		MaxRetries:        getEnvIntOrDefault("OPENAI_MAX_RETRIES", 3),
		APIType:           APITypeAzure,
		AzureEndpoint:     getEnvOrDefault("AZURE_OPENAI_ENDPOINT", ""),
		AzureDeployment:   getEnvOrDefault("AZURE_OPENAI_DEPLOYMENT", ""),
		AzureAPIVersion:   getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		RateLimit:         getEnvIntOrDefault("OPENAI_RATE_LIMIT", 0),
		RateLimitInterval: time.Duration(getEnvIntOrDefault("OPENAI_RATE_LIMIT_INTERVAL_SECONDS", 60)) * time.Second,
		MaxTokens:         getEnvIntOrDefault("OPENAI_MAX_TOKENS", 0),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid and complete
func (c *Config) Validate() error {
	if c.APIKey == "" {
		if c.APIType == APITypeAzure {
			return fmt.Errorf("AZURE_OPENAI_API_KEY environment variable is required for the azure_openai provider")
		}
		return fmt.Errorf("OPENAI_API_KEY environment variable is required. Please set it with your OpenAI API key")
	}

	if c.APIType == APITypeAzure {
		if c.AzureEndpoint == "" {
			return fmt.Errorf("AZURE_OPENAI_ENDPOINT is required for the azure_openai provider")
		}
		if c.AzureDeployment == "" {
			return fmt.Errorf("AZURE_OPENAI_DEPLOYMENT is required for the azure_openai provider")
		}
	}

	if c.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", c.Temperature)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries cannot be negative, got %d", c.MaxRetries)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit cannot be negative, got %d", c.RateLimit)
	}

	if c.RateLimit > 0 && c.RateLimitInterval <= 0 {
		return fmt.Errorf("rateLimitInterval must be positive when rate limiting is enabled, got %v", c.RateLimitInterval)
	}

	if c.MaxTokens < 0 {
		return fmt.Errorf("maxTokens cannot be negative, got %d", c.MaxTokens)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloatOrDefault returns the environment variable as float32 or default if not set/invalid
func getEnvFloatOrDefault(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable as int or default if not set/invalid
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
