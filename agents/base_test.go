package agents

import (
	"testing"

	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/prompt"
)

// testRegistry loads the embedded prompt templates for stage tests.
func testRegistry(t *testing.T) *prompt.Registry {
	t.Helper()
	reg, err := prompt.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

// systemAndUser splits the recorded mock call into its two messages.
func systemAndUser(t *testing.T, mock *llm.MockProvider) (system, user string) {
	t.Helper()
	call := mock.LastCall()
	if len(call) != 2 {
		t.Fatalf("expected a system+user call, got %d messages", len(call))
	}
	if call[0].Role != llm.RoleSystem || call[1].Role != llm.RoleUser {
		t.Fatalf("unexpected roles %s/%s", call[0].Role, call[1].Role)
	}
	return call[0].Content, call[1].Content
}
