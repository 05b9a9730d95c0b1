package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alt-coder/synthio/llm"
)

// AnthropicClient implements LLMProvider for the Anthropic Messages API.
// The API is called directly over HTTP; there is no official Go SDK dependency.
type AnthropicClient struct {
	config     *Config
	httpClient *http.Client
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float32           `json:"temperature,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient creates a new Anthropic client with the provided configuration
func NewAnthropicClient(config *Config) (*AnthropicClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &AnthropicClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// NewAnthropicClientFromEnv creates a new Anthropic client using environment variables
func NewAnthropicClientFromEnv() (*AnthropicClient, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	return NewAnthropicClient(config)
}

// CallLLM implements the generic interface, converting messages internally
func (c *AnthropicClient) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	result := llm.Message{}
	if len(messages) == 0 {
		return result, fmt.Errorf("no messages to send")
	}

	request := c.buildRequest(messages)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		var content string
		content, lastErr = c.complete(ctx, request)
		if lastErr == nil {
			result.Role = llm.RoleAssistant
			result.Content = content
			return result, nil
		}
		if !llm.IsRetryable(lastErr) {
			break
		}

		if attempt < c.config.MaxRetries {
			waitTime := time.Duration(attempt+1) * time.Second
			select {
			case <-time.After(waitTime):
				continue
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	return result, lastErr
}

// buildRequest folds system messages into the dedicated system field; the
// Messages API rejects "system" entries in the messages array.
func (c *AnthropicClient) buildRequest(messages []llm.Message) anthropicRequest {
	var systemParts []string
	apiMessages := make([]anthropicMessage, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		apiMessages = append(apiMessages, anthropicMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	request := anthropicRequest{
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
		System:    strings.Join(systemParts, "\n\n"),
		Messages:  apiMessages,
	}
	temp := c.config.Temperature
	request.Temperature = &temp
	return request
}

func (c *AnthropicClient) complete(ctx context.Context, request anthropicRequest) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", c.config.APIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", llm.NewProviderError("anthropic", llm.ErrCodeTimeout, "request cancelled or timed out", err)
		}
		return "", llm.NewProviderError("anthropic", llm.ErrCodeUnavailable, err.Error(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.NewProviderError("anthropic", llm.ErrCodeUnavailable, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.classifyHTTPStatus(resp.StatusCode, respBody)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", llm.NewProviderError("anthropic", llm.ErrCodeModelError, "failed to decode response", err)
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (c *AnthropicClient) classifyHTTPStatus(status int, body []byte) error {
	message := fmt.Sprintf("unexpected status %d", status)
	var apiErr anthropicError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	code := llm.ErrCodeUnavailable
	switch {
	case status == http.StatusTooManyRequests:
		code = llm.ErrCodeRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = llm.ErrCodeAuthFailed
	case status >= 500:
		code = llm.ErrCodeModelError
	case status >= 400:
		code = llm.ErrCodeInvalidRequest
	}

	pe := llm.NewProviderError("anthropic", code, message, nil)
	pe.StatusCode = status
	return pe
}

// GetName returns the provider name
func (c *AnthropicClient) GetName() string {
	return "anthropic"
}

// SetConfig updates the client configuration
func (c *AnthropicClient) SetConfig(config map[string]any) error {
	if c.config == nil {
		c.config = &Config{}
	}

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
	if maxTokens, ok := config["maxTokens"].(int); ok {
		c.config.MaxTokens = maxTokens
	}
	if baseURL, ok := config["baseURL"].(string); ok {
		c.config.BaseURL = baseURL
	}
	return nil
}
