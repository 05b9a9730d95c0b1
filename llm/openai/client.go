package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/alt-coder/synthio/llm"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements LLMProvider for OpenAI and Azure OpenAI chat models
type OpenAIClient struct {
	client *openai.Client
	config *Config

	// Rate limiting
	rateLimiter *time.Ticker
	tokens      chan struct{}
}

// CallLLM implements the generic interface, converting messages internally
func (c *OpenAIClient) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
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

	request := openai.ChatCompletionRequest{
		Model:       c.requestModel(),
		Messages:    c.convertToOpenAIMessages(messages),
		Temperature: effectiveTemperature(c.config.Temperature),
	}
	if c.config.MaxTokens > 0 {
		request.MaxTokens = c.config.MaxTokens
	}

	// Make API call with retries
	var response openai.ChatCompletionResponse
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		response, lastErr = c.client.CreateChatCompletion(ctx, request)
		if lastErr == nil {
			break
		}
		if !llm.IsRetryable(classifyError(c.GetName(), lastErr)) {
			break
		}

		if attempt < c.config.MaxRetries {
			// Wait before retry with exponential backoff
			waitTime := time.Duration(attempt+1) * time.Second
			select {
			case <-time.After(waitTime):
				continue
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	if lastErr != nil {
		return result, classifyError(c.GetName(), lastErr)
	}

	if len(response.Choices) == 0 {
		return result, llm.NewProviderError(c.GetName(), llm.ErrCodeModelError, "no choices returned from API", nil)
	}

	result.Role = llm.RoleAssistant
	result.Content = response.Choices[0].Message.Content
	return result, nil
}

// requestModel returns the model identifier to send: the deployment name for
// Azure, the plain model name otherwise.
func (c *OpenAIClient) requestModel() string {
	if c.config.APIType == APITypeAzure && c.config.AzureDeployment != "" {
		return c.config.AzureDeployment
	}
	return c.config.Model
}

// effectiveTemperature maps 0 to the smallest non-zero float because go-openai
// omits zero-valued temperatures from the request body.
func effectiveTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// convertToOpenAIMessages converts generic messages to OpenAI format
func (c *OpenAIClient) convertToOpenAIMessages(messages []llm.Message) []openai.ChatCompletionMessage {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return openaiMessages
}

// classifyError maps go-openai errors onto the shared provider error taxonomy.
func classifyError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe := llm.NewProviderError(provider, codeForStatus(apiErr.HTTPStatusCode), fmt.Sprintf("%v", apiErr.Message), err)
		pe.StatusCode = apiErr.HTTPStatusCode
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewProviderError(provider, llm.ErrCodeTimeout, "request timed out", err)
	}
	return llm.NewProviderError(provider, llm.ErrCodeUnavailable, err.Error(), err)
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return llm.ErrCodeRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return llm.ErrCodeAuthFailed
	case status >= 500:
		return llm.ErrCodeModelError
	case status >= 400:
		return llm.ErrCodeInvalidRequest
	}
	return llm.ErrCodeUnavailable
}

// GetName returns the provider name
func (c *OpenAIClient) GetName() string {
	if c.config != nil && c.config.APIType == APITypeAzure {
		return "azure_openai"
	}
	return "openai"
}

// SetConfig updates the client configuration
func (c *OpenAIClient) SetConfig(config map[string]any) error {
	if c.config == nil {
		c.config = &Config{}
	}

	rebuild := false
	if model, ok := config["model"].(string); ok {
		c.config.Model = model
	}
	if temp, ok := config["temperature"].(float32); ok {
		c.config.Temperature = temp
	}
	if apiKey, ok := config["apiKey"].(string); ok {
		c.config.APIKey = apiKey
		rebuild = true
	}
	if baseURL, ok := config["baseURL"].(string); ok {
		c.config.BaseURL = baseURL
		rebuild = true
	}
	if orgID, ok := config["orgID"].(string); ok {
		c.config.OrgID = orgID
		rebuild = true
	}
	if maxRetries, ok := config["maxRetries"].(int); ok {
		c.config.MaxRetries = maxRetries
	}
	if maxTokens, ok := config["maxTokens"].(int); ok {
		c.config.MaxTokens = maxTokens
	}

	if rebuild {
		c.client = openai.NewClientWithConfig(clientConfigFor(c.config))
	}
	return nil
}

func clientConfigFor(config *Config) openai.ClientConfig {
	if config.APIType == APITypeAzure {
		clientConfig := openai.DefaultAzureConfig(config.APIKey, config.AzureEndpoint)
		if config.AzureAPIVersion != "" {
			clientConfig.APIVersion = config.AzureAPIVersion
		}
		return clientConfig
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.OrgID != "" {
		clientConfig.OrgID = config.OrgID
	}
	return clientConfig
}

// NewOpenAIClient creates a new client with the provided configuration
func NewOpenAIClient(ctx context.Context, config *Config) (*OpenAIClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfigFor(config)),
		config: config,
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

// NewOpenAIClientFromEnv creates a new OpenAI client using environment variables
func NewOpenAIClientFromEnv(ctx context.Context) (*OpenAIClient, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return NewOpenAIClient(ctx, config)
}

// refillTokens runs in a goroutine to refill the token bucket at the configured rate
func (c *OpenAIClient) refillTokens() {
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
func (c *OpenAIClient) Close() {
	if c.rateLimiter != nil {
		c.rateLimiter.Stop()
	}
}
