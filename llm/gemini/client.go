package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/alt-coder/synthio/llm"
	"google.golang.org/genai"
)

// GeminiClient implements LLMProvider interface for Google's Gemini models
type GeminiClient struct {
	genaiClient *genai.Client
	config      *Config

	// Rate limiting
	rateLimiter *time.Ticker
	tokens      chan struct{}
}

// CallLLM implements the generic interface, converting messages internally
func (c *GeminiClient) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	result := llm.Message{}
	if len(messages) == 0 {
		return result, fmt.Errorf("no messages to send")
	}

	// Apply rate limiting if enabled
	if c.tokens != nil {
		select {
		case <-c.tokens:
			// Token acquired, proceed with request
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	contents, genConfig := c.convertToGenaiRequest(messages)

	response, err := c.genaiClient.Models.GenerateContent(ctx, c.config.Model, contents, genConfig)
	if err != nil {
		return llm.Message{}, llm.NewProviderError("gemini", llm.ErrCodeModelError, "failed to generate content", err)
	}

	result.Role = llm.RoleAssistant
	result.Content = response.Text()
	return result, nil
}

// convertToGenaiRequest converts generic messages to the Gemini format. System
// messages become the system instruction; Gemini has no system role in the
// contents array.
func (c *GeminiClient) convertToGenaiRequest(messages []llm.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	var contents []*genai.Content
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.config.Temperature),
	}

	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			genConfig.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: msg.Content}},
			}
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  getRole(msg.Role),
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	return contents, genConfig
}

func getRole(role string) string {
	switch role {
	case llm.RoleAssistant:
		return genai.RoleModel
	default:
		return genai.RoleUser
	}
}

// GetName returns the provider name
func (c *GeminiClient) GetName() string {
	return "gemini"
}

// SetConfig updates the client configuration
func (c *GeminiClient) SetConfig(config map[string]any) error {
	if c.config == nil {
		c.config = &Config{}
	}

	// Update configuration fields if provided
	if model, ok := config["model"].(string); ok {
		c.config.Model = model
	}
	if temp, ok := config["temperature"].(float32); ok {
		c.config.Temperature = temp
	}
	if apiKey, ok := config["apiKey"].(string); ok {
		c.config.APIKey = apiKey
	}
	if maxRetries, ok := config["maxRetries"].(int); ok {
		c.config.MaxRetries = maxRetries
	}
	if rateLimit, ok := config["rateLimit"].(int); ok {
		c.config.RateLimit = rateLimit
	}
	if rateLimitInterval, ok := config["rateLimitInterval"].(time.Duration); ok {
		c.config.RateLimitInterval = rateLimitInterval
	}

	return nil
}

// NewGeminiClient creates a new Gemini client with the provided configuration
func NewGeminiClient(ctx context.Context, config *Config) (*GeminiClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Create the GenAI client with the specified backend
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: config.Backend,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	client := &GeminiClient{
		genaiClient: genaiClient,
		config:      config,
	}

	// Initialize rate limiter only if rate limiting is enabled
	if config.RateLimit > 0 {
		tokens := make(chan struct{}, config.RateLimit)
		rateLimiter := time.NewTicker(config.RateLimitInterval / time.Duration(config.RateLimit))

		// Fill initial tokens
		for i := 0; i < config.RateLimit; i++ {
			tokens <- struct{}{}
		}

		client.rateLimiter = rateLimiter
		client.tokens = tokens

		// Start token refill goroutine
		go client.refillTokens()
	}

	return client, nil
}

// NewGeminiClientFromEnv creates a new Gemini client using environment variables
func NewGeminiClientFromEnv(ctx context.Context) (*GeminiClient, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return NewGeminiClient(ctx, config)
}

// refillTokens runs in a goroutine to refill the token bucket at the configured rate
func (c *GeminiClient) refillTokens() {
	for range c.rateLimiter.C {
		select {
		case c.tokens <- struct{}{}:
			// Token added successfully
		default:
			// Token bucket is full, skip
		}
	}
}

// Close stops the rate limiter and cleans up resources
func (c *GeminiClient) Close() {
	if c.rateLimiter != nil {
		c.rateLimiter.Stop()
	}
}
