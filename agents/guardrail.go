package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/alt-coder/synthio/graph"
	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/prompt"
	"github.com/alt-coder/synthio/structured"
)

// Canned replies for questions the guardrail turns away.
const (
	emptyQueryResponse = "Please enter a question about the pharmaceutical sales data."

	injectionResponse = "I noticed your message contains unusual instructions. " +
		"I'm designed to help with pharmaceutical sales data analysis. " +
		"Please ask a question about prescriptions, doctors, territories, " +
		"or sales activities!"

	sqlAttackResponse = "I'm not able to process that request. " +
		"I can help you analyze our pharmaceutical sales data using natural language. " +
		"Try asking something like 'Who are the top 10 doctors by prescriptions?'"

	defaultBlockResponse = "I'm not able to process that request. I'm here to help you " +
		"analyze pharmaceutical sales data including prescriptions, " +
		"doctor performance, territory analysis, and sales activities. " +
		"Could you ask a question about our data?"
)

// injectionPatterns are prompt-injection markers checked before any
// model call. Matching is case-insensitive substring.
var injectionPatterns = []string{
	"ignore previous",
	"ignore all previous",
	"ignore your instructions",
	"disregard your",
	"forget your instructions",
	"you are now",
	"pretend you are",
	"act as if",
	"new instructions:",
	"system prompt:",
	"override:",
	"jailbreak",
	"dan mode",
	"developer mode",
}

// sqlAttackPatterns are raw SQL fragments that never belong in a
// natural-language question.
var sqlAttackPatterns = []string{
	"drop table",
	"delete from",
	"truncate table",
	"update set",
	"insert into",
	"; --",
	"' or '1'='1",
	"union select",
}

// Guardrail screens incoming questions before the rest of the pipeline
// spends model calls on them. Empty input and obvious attack patterns
// are rejected without touching the model; everything else is
// classified by the model as ALLOW or BLOCK.
type Guardrail struct {
	base
}

// NewGuardrail returns the guardrail stage.
func NewGuardrail(provider llm.LLMProvider, prompts *prompt.Registry) *Guardrail {
	return &Guardrail{base{provider: provider, prompts: prompts}}
}

// Name identifies the stage in logs and traces.
func (g *Guardrail) Name() string { return prompt.Guardrail }

// Run evaluates the user question and records the verdict. A malformed
// model reply fails open: the question is allowed so the planner can
// handle edge cases, rather than blocking legitimate questions.
func (g *Guardrail) Run(ctx context.Context, state *graph.WorkflowState) (graph.Action, error) {
	query := state.UserQuery
	if strings.TrimSpace(query) == "" {
		return g.block(state, &graph.GuardrailResult{
			Decision:     graph.DecisionBlock,
			Category:     "empty_query",
			Confidence:   1.0,
			Reasoning:    "Empty query provided",
			UserResponse: emptyQueryResponse,
		})
	}

	if response, ok := matchAttackPattern(query); ok {
		return g.block(state, &graph.GuardrailResult{
			Decision:     graph.DecisionBlock,
			Category:     "obvious_attack",
			Confidence:   1.0,
			Reasoning:    "Detected obvious attack pattern",
			UserResponse: response,
		})
	}

	raw, err := g.invoke(ctx, prompt.Guardrail, prompt.GuardrailData{Query: query})
	if err != nil {
		return "", err
	}

	var result graph.GuardrailResult
	if err := structured.Unmarshal(raw, &result); err != nil {
		state.GuardrailResult = &graph.GuardrailResult{
			Decision:   graph.DecisionAllow,
			Category:   "parse_error",
			Confidence: 0.5,
			Reasoning:  fmt.Sprintf("Failed to parse guardrail response: %v", err),
		}
		state.GuardrailPassed = true
		return graph.ActionProceed, nil
	}

	result.Decision = strings.ToUpper(strings.TrimSpace(result.Decision))
	if result.Decision == graph.DecisionBlock && result.UserResponse == "" {
		result.UserResponse = defaultBlockResponse
	}

	state.GuardrailResult = &result
	state.GuardrailPassed = result.Decision == graph.DecisionAllow
	if !state.GuardrailPassed {
		return graph.ActionBlocked, nil
	}
	return graph.ActionProceed, nil
}

func (g *Guardrail) block(state *graph.WorkflowState, result *graph.GuardrailResult) (graph.Action, error) {
	state.GuardrailResult = result
	state.GuardrailPassed = false
	return graph.ActionBlocked, nil
}

// matchAttackPattern reports whether the query contains an obvious
// injection or SQL attack fragment, and if so which canned reply to use.
func matchAttackPattern(query string) (string, bool) {
	lower := strings.ToLower(query)
	for _, pattern := range injectionPatterns {
		if strings.Contains(lower, pattern) {
			return injectionResponse, true
		}
	}
	for _, pattern := range sqlAttackPatterns {
		if strings.Contains(lower, pattern) {
			return sqlAttackResponse, true
		}
	}
	return "", false
}
