package agents

import (
	"context"
	"strings"

	"github.com/alt-coder/synthio/graph"
	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/prompt"
	"github.com/alt-coder/synthio/store"
	"github.com/alt-coder/synthio/structured"
)

// QueryRunner is the slice of the database the generator stage needs:
// executing one read-only statement and naming the SQL dialect for the
// prompt.
type QueryRunner interface {
	Query(ctx context.Context, query string) (*store.QueryResult, error)
	Dialect() string
}

// SQLGenerator writes a SQL query from the plan and executes it.
// Execution failures do not abort the pipeline; they are recorded on
// the result so the validator can send the flow back for another try.
type SQLGenerator struct {
	base
	db QueryRunner
}

// NewSQLGenerator returns the SQL generation stage.
func NewSQLGenerator(provider llm.LLMProvider, prompts *prompt.Registry, db QueryRunner) *SQLGenerator {
	return &SQLGenerator{base: base{provider: provider, prompts: prompts}, db: db}
}

// Name identifies the stage in logs and traces.
func (g *SQLGenerator) Name() string { return prompt.SQLGenerator }

// sqlReply is the JSON contract of the generation prompt.
type sqlReply struct {
	SQLQuery  string `json:"sql_query"`
	Reasoning string `json:"reasoning"`
}

// Run generates SQL for the current plan, executes it, and records
// both on the state. On a retry pass the previous query and result are
// overwritten.
func (g *SQLGenerator) Run(ctx context.Context, state *graph.WorkflowState) (graph.Action, error) {
	plan := state.QueryPlan
	if plan == nil {
		plan = &graph.QueryPlan{}
	}

	raw, err := g.invoke(ctx, prompt.SQLGenerator, prompt.SQLGeneratorData{
		Dialect:            g.db.Dialect(),
		Schema:             state.SchemaContext,
		Query:              state.UserQuery,
		Intent:             plan.UserIntent,
		Instructions:       plan.Instructions,
		OutputRequirements: plan.OutputRequirements,
		Sorting:            plan.SortingPreference,
		Limit:              plan.LimitPreference,
	})
	if err != nil {
		return "", err
	}

	var reply sqlReply
	if err := structured.Unmarshal(raw, &reply); err != nil {
		g.record(state, "", "", &graph.SQLResult{
			Success: false,
			Error:   err.Error(),
		})
		return graph.ActionProceed, nil
	}

	query := strings.TrimSpace(reply.SQLQuery)
	if query == "" {
		g.record(state, "", reply.Reasoning, &graph.SQLResult{
			Success: false,
			Error:   "No SQL query generated",
		})
		return graph.ActionProceed, nil
	}

	result, err := g.db.Query(ctx, query)
	if err != nil {
		g.record(state, query, reply.Reasoning, &graph.SQLResult{
			Query:   query,
			Success: false,
			Error:   err.Error(),
		})
		return graph.ActionProceed, nil
	}

	g.record(state, query, reply.Reasoning, &graph.SQLResult{
		Query:    query,
		Success:  true,
		Columns:  result.Columns,
		Data:     result.Rows,
		RowCount: len(result.Rows),
	})
	return graph.ActionProceed, nil
}

func (g *SQLGenerator) record(state *graph.WorkflowState, query, reasoning string, result *graph.SQLResult) {
	state.SQLQuery = query
	state.SQLReasoning = reasoning
	state.SQLResult = result
	state.ErrorMessage = result.Error
}
