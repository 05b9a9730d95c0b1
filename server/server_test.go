package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/alt-coder/synthio/chatbot"
)

type stubBot struct {
	result  *chatbot.Result
	err     error
	pingErr error
	asked   []string
}

func (s *stubBot) AskDetailed(_ context.Context, query string) (*chatbot.Result, error) {
	s.asked = append(s.asked, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubBot) SchemaContext() string {
	return "## Database Schema Documentation\n\n### fact_rx\nPrescription facts."
}

func (s *stubBot) Ping(context.Context) error { return s.pingErr }

func answeredResult() *chatbot.Result {
	return &chatbot.Result{
		FinalResponse: "Dr. Blake Garcia leads with 412 prescriptions.",
		SQLQuery:      "SELECT full_name FROM hcp_dim LIMIT 1",
		RowCount:      1,
		RetryCount:    1,
		RunID:         "run-123",
		Duration:      1500 * time.Millisecond,
		Success:       true,
	}
}

func serve(t *testing.T, bot Chatbot, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	New(bot, ":0").Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	bot := &stubBot{result: answeredResult()}
	rec := serve(t, bot, http.MethodPost, "/api/chat", `{"message": "Who wrote the most prescriptions?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Response != "Dr. Blake Garcia leads with 412 prescriptions." {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.SQLQuery == "" {
		t.Error("missing sql_query")
	}
	if resp.DurationMS != 1500 {
		t.Errorf("duration_ms = %d, want 1500", resp.DurationMS)
	}
	if resp.RetryCount != 1 || resp.RowCount != 1 || !resp.Success {
		t.Errorf("unexpected response fields: %+v", resp)
	}
	if len(bot.asked) != 1 || bot.asked[0] != "Who wrote the most prescriptions?" {
		t.Errorf("bot asked %v", bot.asked)
	}
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	bot := &stubBot{result: answeredResult()}
	rec := serve(t, bot, http.MethodPost, "/api/chat", `{"message": "   "}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(bot.asked) != 0 {
		t.Error("empty message reached the bot")
	}
}

func TestChatEndpointRejectsBadJSON(t *testing.T) {
	rec := serve(t, &stubBot{}, http.MethodPost, "/api/chat", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatEndpointBotError(t *testing.T) {
	bot := &stubBot{err: errors.New("model unreachable")}
	rec := serve(t, bot, http.MethodPost, "/api/chat", `{"message": "hello"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error == "" {
		t.Error("missing error message")
	}
	if strings.Contains(resp.Error, "model unreachable") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestChatEndpointMethodNotAllowed(t *testing.T) {
	rec := serve(t, &stubBot{}, http.MethodGet, "/api/chat", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	rec := serve(t, &stubBot{}, http.MethodGet, "/api/schema", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !strings.Contains(resp["schema"], "Database Schema Documentation") {
		t.Errorf("schema = %q", resp["schema"])
	}
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &stubBot{}, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHealthzDegraded(t *testing.T) {
	bot := &stubBot{pingErr: errors.New("connection refused")}
	rec := serve(t, bot, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"degraded"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestIndexPage(t *testing.T) {
	rec := serve(t, &stubBot{}, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Synthio") {
		t.Error("index page missing")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	bot := &stubBot{result: answeredResult()}
	// One chat request so the counter has a series to report.
	serve(t, bot, http.MethodPost, "/api/chat", `{"message": "hello"}`)

	rec := serve(t, bot, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "synthio_chat_requests_total") {
		t.Error("chat request counter not exported")
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func TestAskSalesDataTool(t *testing.T) {
	bot := &stubBot{result: answeredResult()}
	handler := askSalesDataHandler(bot)

	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "ask_sales_data",
			Arguments: map[string]any{"question": "Who wrote the most prescriptions?"},
		},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool errored: %s", toolText(t, result))
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(toolText(t, result)), &payload); err != nil {
		t.Fatalf("decoding tool payload: %v", err)
	}
	if payload["answer"] != "Dr. Blake Garcia leads with 412 prescriptions." {
		t.Errorf("answer = %v", payload["answer"])
	}
	if payload["sql_query"] == "" {
		t.Error("missing sql_query in tool payload")
	}
}

func TestAskSalesDataToolRequiresQuestion(t *testing.T) {
	handler := askSalesDataHandler(&stubBot{})

	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "ask_sales_data",
			Arguments: map[string]any{},
		},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Error("expected a tool error without a question")
	}
}

func TestGetSchemaTool(t *testing.T) {
	handler := getSchemaHandler(&stubBot{})

	result, err := handler(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !strings.Contains(toolText(t, result), "Database Schema Documentation") {
		t.Errorf("schema tool returned %q", toolText(t, result))
	}
}
