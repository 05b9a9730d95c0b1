package agents

import (
	"context"
	"strings"

	"github.com/alt-coder/synthio/graph"
	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/prompt"
	"github.com/alt-coder/synthio/structured"
)

// Planner turns a business question into natural-language retrieval
// instructions for the SQL generator. It deliberately stays away from
// table names and SQL syntax; choosing those is the generator's job.
type Planner struct {
	base
}

// NewPlanner returns the planner stage.
func NewPlanner(provider llm.LLMProvider, prompts *prompt.Registry) *Planner {
	return &Planner{base{provider: provider, prompts: prompts}}
}

// Name identifies the stage in logs and traces.
func (p *Planner) Name() string { return prompt.Planner }

// Run analyzes the question against the schema context and records the
// plan. When the model reply cannot be parsed the stage falls back to a
// pass-through plan that simply asks the generator to answer the raw
// question, so one bad reply does not sink the whole run.
func (p *Planner) Run(ctx context.Context, state *graph.WorkflowState) (graph.Action, error) {
	raw, err := p.invoke(ctx, prompt.Planner, prompt.PlannerData{
		Schema: state.SchemaContext,
		Query:  state.UserQuery,
	})
	if err != nil {
		return "", err
	}

	var plan graph.QueryPlan
	if err := structured.Unmarshal(raw, &plan); err != nil {
		state.QueryPlan = &graph.QueryPlan{
			UserIntent:   "Failed to analyze the question",
			Instructions: "Please retrieve data to answer: " + state.UserQuery,
			Complexity:   "unknown",
			ErrorMessage: err.Error(),
		}
		state.ErrorMessage = err.Error()
		return graph.ActionProceed, nil
	}

	if strings.TrimSpace(plan.Complexity) == "" {
		plan.Complexity = "medium"
	}

	state.QueryPlan = &plan
	state.ErrorMessage = ""
	return graph.ActionProceed, nil
}
