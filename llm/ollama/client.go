package ollama

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

// OllamaClient implements LLMProvider for a local Ollama server using the
// non-streaming /api/chat endpoint.
type OllamaClient struct {
	config     *Config
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float32 `json:"temperature"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// NewOllamaClient creates a new Ollama client with the provided configuration
func NewOllamaClient(config *Config) (*OllamaClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OllamaClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// NewOllamaClientFromEnv creates a new Ollama client using environment variables
func NewOllamaClientFromEnv() (*OllamaClient, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	return NewOllamaClient(config)
}

// CallLLM implements the generic interface, converting messages internally
func (c *OllamaClient) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	result := llm.Message{}
	if len(messages) == 0 {
		return result, fmt.Errorf("no messages to send")
	}

	request := chatRequest{
		Model:   c.config.Model,
		Stream:  false,
		Options: chatOptions{Temperature: c.config.Temperature},
	}
	for _, msg := range messages {
		request.Messages = append(request.Messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		var content string
		content, lastErr = c.chat(ctx, request)
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

func (c *OllamaClient) chat(ctx context.Context, request chatRequest) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.Host, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", llm.NewProviderError("ollama", llm.ErrCodeTimeout, "request cancelled or timed out", err)
		}
		return "", llm.NewProviderError("ollama", llm.ErrCodeUnavailable, err.Error(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.NewProviderError("ollama", llm.ErrCodeUnavailable, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		code := llm.ErrCodeUnavailable
		if resp.StatusCode >= 500 {
			code = llm.ErrCodeModelError
		} else if resp.StatusCode >= 400 {
			code = llm.ErrCodeInvalidRequest
		}
		pe := llm.NewProviderError("ollama", code, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(respBody)), nil)
		pe.StatusCode = resp.StatusCode
		return "", pe
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", llm.NewProviderError("ollama", llm.ErrCodeModelError, "failed to decode response", err)
	}

	return apiResp.Message.Content, nil
}

// GetName returns the provider name
func (c *OllamaClient) GetName() string {
	return "ollama"
}

// SetConfig updates the client configuration
func (c *OllamaClient) SetConfig(config map[string]any) error {
	if c.config == nil {
		c.config = &Config{}
	}

	if model, ok := config["model"].(string); ok {
		c.config.Model = model
	}
	if temp, ok := config["temperature"].(float32); ok {
		c.config.Temperature = temp
	}
	if host, ok := config["host"].(string); ok {
		c.config.Host = host
	}
	if maxRetries, ok := config["maxRetries"].(int); ok {
		c.config.MaxRetries = maxRetries
	}
	return nil
}
