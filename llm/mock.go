package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// MockProvider implements LLMProvider for testing. Responses are served either
// from keyword patterns matched against the last user message or from a fixed
// queue; once the queue is exhausted the last response repeats, which keeps
// repeated identical runs deterministic.
type MockProvider struct {
	mu            sync.Mutex
	name          string
	responses     []string
	responseIndex int
	patterns      map[string]string
	failAfter     int // fail on calls >= failAfter when > 0
	errorMessage  string
	calls         [][]Message
	config        map[string]any
}

// NewMockProvider creates a new mock LLM provider with a single default response.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:      name,
		responses: []string{`{"status": "ok"}`},
		patterns:  make(map[string]string),
		config:    make(map[string]any),
	}
}

// CallLLM records the call and returns the configured response or error.
func (m *MockProvider) CallLLM(ctx context.Context, messages []Message) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	m.calls = append(m.calls, messages)

	if m.failAfter > 0 && len(m.calls) >= m.failAfter {
		msg := m.errorMessage
		if msg == "" {
			msg = "simulated API error from " + m.name
		}
		return Message{}, errors.New(msg)
	}

	if resp, ok := m.matchPattern(messages); ok {
		return Message{Role: RoleAssistant, Content: resp}, nil
	}

	if len(m.responses) == 0 {
		return Message{Role: RoleAssistant, Content: ""}, nil
	}
	resp := m.responses[m.responseIndex]
	if m.responseIndex < len(m.responses)-1 {
		m.responseIndex++
	}
	return Message{Role: RoleAssistant, Content: resp}, nil
}

func (m *MockProvider) matchPattern(messages []Message) (string, bool) {
	if len(m.patterns) == 0 || len(messages) == 0 {
		return "", false
	}
	last := messages[len(messages)-1]
	if last.Role != RoleUser {
		return "", false
	}
	input := strings.ToLower(last.Content)
	for pattern, response := range m.patterns {
		if strings.Contains(input, strings.ToLower(pattern)) {
			return response, true
		}
	}
	return "", false
}

// GetName returns the mock provider name.
func (m *MockProvider) GetName() string {
	return m.name
}

// SetConfig updates the mock provider configuration.
func (m *MockProvider) SetConfig(config map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
	return nil
}

// SetResponses replaces the response queue.
func (m *MockProvider) SetResponses(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.responseIndex = 0
}

// AddResponse appends a single response to the queue.
func (m *MockProvider) AddResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response)
}

// SetResponsePattern maps lowercase keywords in the last user message to
// canned responses. Patterns win over the response queue.
func (m *MockProvider) SetResponsePattern(patterns map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = patterns
}

// SetError makes every subsequent call fail with the given message.
func (m *MockProvider) SetError(errorMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = 1
	m.errorMessage = errorMessage
}

// SetErrorAfter makes calls fail once the total call count reaches n.
func (m *MockProvider) SetErrorAfter(n int, errorMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.errorMessage = errorMessage
}

// ClearError removes any configured error behavior.
func (m *MockProvider) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = 0
	m.errorMessage = ""
}

// CallCount returns the number of CallLLM invocations.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsMatching counts calls whose user message contains substr,
// case-insensitive. Useful for asserting which stages ran.
func (m *MockProvider) CallsMatching(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(substr)
	count := 0
	for _, call := range m.calls {
		for _, msg := range call {
			if msg.Role == RoleUser && strings.Contains(strings.ToLower(msg.Content), needle) {
				count++
				break
			}
		}
	}
	return count
}

// LastCall returns the messages of the most recent call, or nil.
func (m *MockProvider) LastCall() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// Reset restores the provider to its initial state.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseIndex = 0
	m.failAfter = 0
	m.errorMessage = ""
	m.patterns = make(map[string]string)
	m.calls = nil
}
