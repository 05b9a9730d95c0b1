package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alt-coder/synthio/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *Config {
	return &Config{
		APIKey:     "test-key",
		Model:      "claude-3-5-sonnet-20241022",
		MaxRetries: 0,
		MaxTokens:  1024,
		BaseURL:    baseURL,
		APIVersion: defaultAPIVersion,
	}
}

func TestCallLLM_Success(t *testing.T) {
	var gotRequest anthropicRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, defaultAPIVersion, r.Header.Get("anthropic-version"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		resp := anthropicResponse{
			Content:    []contentBlock{{Type: "text", Text: `{"decision": "ALLOW"}`}},
			Model:      gotRequest.Model,
			StopReason: "end_turn",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(testConfig(server.URL))
	require.NoError(t, err)

	result, err := client.CallLLM(context.Background(), llm.Exchange("classify queries", "top doctors by TRx"))
	require.NoError(t, err)

	assert.Equal(t, llm.RoleAssistant, result.Role)
	assert.Equal(t, `{"decision": "ALLOW"}`, result.Content)

	// System messages must be folded into the system field, not the array.
	assert.Equal(t, "classify queries", gotRequest.System)
	require.Len(t, gotRequest.Messages, 1)
	assert.Equal(t, "user", gotRequest.Messages[0].Role)
	require.NotNil(t, gotRequest.Temperature)
	assert.Equal(t, float32(0), *gotRequest.Temperature)
}

func TestCallLLM_MultipleTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := anthropicResponse{
			Content: []contentBlock{
				{Type: "text", Text: "part one "},
				{Type: "text", Text: "part two"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(testConfig(server.URL))
	require.NoError(t, err)

	result, err := client.CallLLM(context.Background(), llm.Exchange("system", "user"))
	require.NoError(t, err)
	assert.Equal(t, "part one part two", result.Content)
}

func TestCallLLM_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCode  string
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, llm.ErrCodeRateLimited, true},
		{"auth failed", http.StatusUnauthorized, llm.ErrCodeAuthFailed, false},
		{"server error", http.StatusInternalServerError, llm.ErrCodeModelError, true},
		{"bad request", http.StatusBadRequest, llm.ErrCodeInvalidRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"type": "api_error", "message": "something went wrong"}}`))
			}))
			defer server.Close()

			client, err := NewAnthropicClient(testConfig(server.URL))
			require.NoError(t, err)

			_, err = client.CallLLM(context.Background(), llm.Exchange("system", "user"))
			require.Error(t, err)

			var pe *llm.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantCode, pe.Code)
			assert.Equal(t, tt.retryable, pe.Retryable)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, "something went wrong", pe.Message)
		})
	}
}

func TestCallLLM_RetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"type": "api_error", "message": "transient"}}`))
			return
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []contentBlock{{Type: "text", Text: "recovered"}},
		})
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.MaxRetries = 1

	client, err := NewAnthropicClient(config)
	require.NoError(t, err)

	result, err := client.CallLLM(context.Background(), llm.Exchange("system", "user"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Content)
	assert.Equal(t, 2, attempts)
}

func TestCallLLM_NoRetryOnAuthError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"type": "authentication_error", "message": "bad key"}}`))
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.MaxRetries = 3

	client, err := NewAnthropicClient(config)
	require.NoError(t, err)

	_, err = client.CallLLM(context.Background(), llm.Exchange("system", "user"))
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "auth errors must not be retried")
}

func TestNewAnthropicClient_InvalidConfig(t *testing.T) {
	_, err := NewAnthropicClient(nil)
	assert.Error(t, err)

	_, err = NewAnthropicClient(&Config{Model: "claude-3-5-sonnet-20241022", MaxTokens: 100})
	assert.Error(t, err, "missing API key must fail")
}
