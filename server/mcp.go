package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// newMCPServer exposes the bot as MCP tools so agent hosts can ask the
// sales data questions over the protocol.
func newMCPServer(bot Chatbot) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"synthio",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool(
			"ask_sales_data",
			mcp.WithDescription("Ask a natural language question about the pharmaceutical sales dataset and get a written answer with the SQL that produced it"),
			mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
		),
		askSalesDataHandler(bot),
	)

	s.AddTool(
		mcp.NewTool(
			"get_schema",
			mcp.WithDescription("Get the documentation of the sales database schema, including tables, columns, and join paths"),
		),
		getSchemaHandler(bot),
	)

	return s
}

// mountMCP serves the MCP endpoints under /mcp via SSE.
func mountMCP(router *mux.Router, bot Chatbot) {
	sse := mcpserver.NewSSEServer(newMCPServer(bot), mcpserver.WithStaticBasePath("/mcp"))
	router.PathPrefix("/mcp").Handler(sse)
}

func askSalesDataHandler(bot Chatbot) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]any)
		if !ok {
			return mcp.NewToolResultError("invalid arguments type"), nil
		}

		question, ok := args["question"].(string)
		if !ok || question == "" {
			return mcp.NewToolResultError("missing required parameter: question"), nil
		}

		result, err := bot.AskDetailed(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to answer: %v", err)), nil
		}

		payload, _ := json.Marshal(map[string]any{
			"answer":    result.FinalResponse,
			"sql_query": result.SQLQuery,
			"row_count": result.RowCount,
			"blocked":   result.Blocked,
			"success":   result.Success,
		})
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func getSchemaHandler(bot Chatbot) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(bot.SchemaContext()), nil
	}
}
