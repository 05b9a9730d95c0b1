package agents

import (
	"context"

	"github.com/alt-coder/synthio/graph"
	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/prompt"
	"github.com/alt-coder/synthio/structured"
)

// retryConfidenceFloor is the confidence below which a nominally valid
// result is still retried.
const retryConfidenceFloor = 0.5

// Validator reviews the executed query and its result set. An invalid
// or low-confidence verdict requests another generation pass, bounded
// by maxRetries.
type Validator struct {
	base
	maxRetries int
}

// NewValidator returns the validation stage. maxRetries bounds how
// often it may request regeneration.
func NewValidator(provider llm.LLMProvider, prompts *prompt.Registry, maxRetries int) *Validator {
	return &Validator{base: base{provider: provider, prompts: prompts}, maxRetries: maxRetries}
}

// Name identifies the stage in logs and traces.
func (v *Validator) Name() string { return prompt.Validator }

// Run asks the model to judge the current result and decides between
// retrying generation and proceeding to the writer. A reply that cannot
// be parsed counts as a failed validation and requests a retry; the
// retry bound still applies.
func (v *Validator) Run(ctx context.Context, state *graph.WorkflowState) (graph.Action, error) {
	plan := state.QueryPlan
	if plan == nil {
		plan = &graph.QueryPlan{}
	}
	sqlResult := state.SQLResult
	if sqlResult == nil {
		sqlResult = &graph.SQLResult{}
	}

	preview := ""
	if sqlResult.Success {
		preview = previewTable(sqlResult, maxPreviewRows)
	}

	raw, err := v.invoke(ctx, prompt.Validator, prompt.ValidatorData{
		Query:     state.UserQuery,
		Intent:    plan.UserIntent,
		SQL:       state.SQLQuery,
		ExecError: sqlResult.Error,
		RowCount:  sqlResult.RowCount,
		Preview:   preview,
	})
	if err != nil {
		return "", err
	}

	var verdict graph.ValidationResult
	if err := structured.Unmarshal(raw, &verdict); err != nil {
		state.ValidationResult = &graph.ValidationResult{
			IsValid:     false,
			Confidence:  0.0,
			Issues:      []string{"Failed to parse validation response"},
			Suggestions: []string{},
			Reasoning:   err.Error(),
		}
		state.ErrorMessage = err.Error()
		return v.decide(state, true), nil
	}

	state.ValidationResult = &verdict
	if verdict.IsValid {
		state.ErrorMessage = ""
	} else if verdict.Reasoning != "" {
		state.ErrorMessage = verdict.Reasoning
	} else {
		state.ErrorMessage = "Validation failed"
	}

	wantRetry := !verdict.IsValid || verdict.Confidence < retryConfidenceFloor
	return v.decide(state, wantRetry), nil
}

// decide applies the retry bound and records the outcome on the state.
func (v *Validator) decide(state *graph.WorkflowState, wantRetry bool) graph.Action {
	state.ShouldRetry = wantRetry && state.RetryCount < v.maxRetries
	if state.ShouldRetry {
		return graph.ActionRetry
	}
	return graph.ActionProceed
}
