package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alt-coder/synthio/graph"
	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/store"
)

// fakeRunner satisfies QueryRunner without a database.
type fakeRunner struct {
	dialect string
	result  *store.QueryResult
	err     error
	queries []string
}

func (f *fakeRunner) Query(_ context.Context, query string) (*store.QueryResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRunner) Dialect() string { return f.dialect }

func newSQLGeneratorTest(t *testing.T, runner *fakeRunner) (*SQLGenerator, *llm.MockProvider) {
	t.Helper()
	mock := llm.NewMockProvider("mock")
	return NewSQLGenerator(mock, testRegistry(t), runner), mock
}

func plannedState(query string) *graph.WorkflowState {
	state := graph.NewState(query, "schema")
	state.QueryPlan = &graph.QueryPlan{
		UserIntent:        "Rank doctors by prescriptions",
		Instructions:      "Retrieve doctors ordered by total prescriptions.",
		SortingPreference: "descending",
		LimitPreference:   "10",
		Complexity:        "simple",
	}
	return state
}

func TestSQLGeneratorHappyPath(t *testing.T) {
	runner := &fakeRunner{
		dialect: "SQLite",
		result: &store.QueryResult{
			Columns: []string{"full_name", "trx_total"},
			Rows: []map[string]any{
				{"full_name": "Dr. Blake Garcia", "trx_total": int64(412)},
				{"full_name": "Dr. Avery Li", "trx_total": int64(398)},
			},
		},
	}
	g, mock := newSQLGeneratorTest(t, runner)
	mock.SetResponses(`{
		"sql_query": "SELECT h.full_name, SUM(f.trx_count) AS trx_total FROM fact_rx f JOIN hcp_dim h ON h.hcp_id = f.hcp_id GROUP BY h.full_name ORDER BY trx_total DESC LIMIT 10",
		"reasoning": "Join prescriptions to doctors and aggregate."
	}`)

	state := plannedState("Who are the top doctors?")
	action, err := g.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if action != graph.ActionProceed {
		t.Errorf("action = %q, want proceed", action)
	}

	if !strings.HasPrefix(state.SQLQuery, "SELECT h.full_name") {
		t.Errorf("unexpected recorded SQL %q", state.SQLQuery)
	}
	if state.SQLReasoning == "" {
		t.Error("reasoning not recorded")
	}
	if len(runner.queries) != 1 || runner.queries[0] != state.SQLQuery {
		t.Errorf("executed queries %v", runner.queries)
	}

	r := state.SQLResult
	if r == nil || !r.Success {
		t.Fatalf("expected a successful result, got %+v", r)
	}
	if r.RowCount != 2 || len(r.Data) != 2 {
		t.Errorf("row count %d, data %d rows", r.RowCount, len(r.Data))
	}
	if len(r.Columns) != 2 || r.Columns[0] != "full_name" {
		t.Errorf("columns = %v", r.Columns)
	}
	if state.ErrorMessage != "" {
		t.Errorf("unexpected error message %q", state.ErrorMessage)
	}
}

func TestSQLGeneratorEmptySQL(t *testing.T) {
	runner := &fakeRunner{dialect: "SQLite"}
	g, mock := newSQLGeneratorTest(t, runner)
	mock.SetResponses(`{"sql_query": "", "reasoning": "The question cannot be answered from this schema."}`)

	state := plannedState("What color is the CEO's car?")
	action, err := g.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if action != graph.ActionProceed {
		t.Errorf("action = %q, want proceed", action)
	}
	if len(runner.queries) != 0 {
		t.Errorf("empty SQL was executed: %v", runner.queries)
	}

	r := state.SQLResult
	if r.Success {
		t.Error("expected a failed result")
	}
	if r.Error != "No SQL query generated" {
		t.Errorf("error = %q", r.Error)
	}
	if state.SQLReasoning == "" {
		t.Error("reasoning should survive an empty query")
	}
	if state.ErrorMessage != "No SQL query generated" {
		t.Errorf("state error = %q", state.ErrorMessage)
	}
}

func TestSQLGeneratorExecutionError(t *testing.T) {
	runner := &fakeRunner{dialect: "SQLite", err: errors.New("no such table: doctors")}
	g, mock := newSQLGeneratorTest(t, runner)
	mock.SetResponses(`{"sql_query": "SELECT * FROM doctors", "reasoning": "Straight lookup."}`)

	state := plannedState("List all doctors")
	action, err := g.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if action != graph.ActionProceed {
		t.Errorf("action = %q, want proceed so the validator can judge the failure", action)
	}

	r := state.SQLResult
	if r.Success {
		t.Error("expected a failed result")
	}
	if !strings.Contains(r.Error, "no such table") {
		t.Errorf("error = %q", r.Error)
	}
	if r.Query != "SELECT * FROM doctors" {
		t.Errorf("query = %q, should be kept for the validator", r.Query)
	}
	if state.SQLQuery != "SELECT * FROM doctors" {
		t.Errorf("state SQL = %q", state.SQLQuery)
	}
}

func TestSQLGeneratorParseFailure(t *testing.T) {
	runner := &fakeRunner{dialect: "SQLite"}
	g, mock := newSQLGeneratorTest(t, runner)
	mock.SetResponses("Here is the query you asked for: SELECT * FROM fact_rx")

	state := plannedState("Show raw prescriptions")
	action, err := g.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if action != graph.ActionProceed {
		t.Errorf("action = %q, want proceed", action)
	}
	if len(runner.queries) != 0 {
		t.Errorf("unparsed reply was executed: %v", runner.queries)
	}
	if state.SQLQuery != "" {
		t.Errorf("SQL = %q, want empty", state.SQLQuery)
	}
	if state.SQLResult.Success || state.SQLResult.Error == "" {
		t.Errorf("result = %+v, want a failure with the parse error", state.SQLResult)
	}
}

func TestSQLGeneratorDialectInPrompt(t *testing.T) {
	runner := &fakeRunner{dialect: "PostgreSQL", result: &store.QueryResult{Rows: []map[string]any{}}}
	g, mock := newSQLGeneratorTest(t, runner)
	mock.SetResponses(`{"sql_query": "SELECT 1", "reasoning": "probe"}`)

	state := plannedState("anything")
	if _, err := g.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}

	system, user := systemAndUser(t, mock)
	if !strings.Contains(system, "PostgreSQL") {
		t.Error("system prompt does not name the dialect")
	}
	if !strings.Contains(user, "Sorting: descending") || !strings.Contains(user, "Row limit: 10") {
		t.Errorf("user prompt drops plan preferences: %q", user)
	}
}

func TestSQLGeneratorNilPlan(t *testing.T) {
	runner := &fakeRunner{dialect: "SQLite", result: &store.QueryResult{
		Columns: []string{"n"},
		Rows:    []map[string]any{{"n": int64(1)}},
	}}
	g, mock := newSQLGeneratorTest(t, runner)
	mock.SetResponses(`{"sql_query": "SELECT 1 AS n", "reasoning": "probe"}`)

	state := graph.NewState("count something", "schema")
	action, err := g.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if action != graph.ActionProceed {
		t.Errorf("action = %q", action)
	}
	if !state.SQLResult.Success {
		t.Error("expected success without a plan")
	}
}

func TestSQLGeneratorModelErrorPropagates(t *testing.T) {
	runner := &fakeRunner{dialect: "SQLite"}
	g, mock := newSQLGeneratorTest(t, runner)
	mock.SetError("rate limited")

	state := plannedState("Top doctors")
	if _, err := g.Run(context.Background(), state); err == nil {
		t.Fatal("expected the model error to propagate")
	}
}
