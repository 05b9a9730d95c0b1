package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/alt-coder/synthio/graph"
	"github.com/alt-coder/synthio/llm"
)

func newPlannerTest(t *testing.T) (*Planner, *llm.MockProvider) {
	t.Helper()
	mock := llm.NewMockProvider("mock")
	return NewPlanner(mock, testRegistry(t)), mock
}

func TestPlannerParsesPlan(t *testing.T) {
	p, mock := newPlannerTest(t)
	mock.SetResponses(`{
		"user_intent": "Rank doctors by total prescriptions",
		"assumptions": ["Top means highest TRx", "Top without a count means ten"],
		"instructions": "Retrieve the doctors with the highest total prescription counts, including their names.",
		"output_requirements": ["doctor name", "total prescriptions"],
		"sorting_preference": "descending by total prescriptions",
		"limit_preference": "10",
		"complexity": "simple"
	}`)

	state := graph.NewState("Who are the top doctors?", "schema")
	action, err := p.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if action != graph.ActionProceed {
		t.Errorf("action = %q, want proceed", action)
	}

	plan := state.QueryPlan
	if plan == nil {
		t.Fatal("no plan recorded")
	}
	if plan.UserIntent != "Rank doctors by total prescriptions" {
		t.Errorf("intent = %q", plan.UserIntent)
	}
	if len(plan.Assumptions) != 2 {
		t.Errorf("assumptions = %v", plan.Assumptions)
	}
	if plan.Complexity != "simple" {
		t.Errorf("complexity = %q", plan.Complexity)
	}
	if state.ErrorMessage != "" {
		t.Errorf("unexpected error message %q", state.ErrorMessage)
	}
}

func TestPlannerDefaultsComplexity(t *testing.T) {
	p, mock := newPlannerTest(t)
	mock.SetResponses(`{"user_intent": "Count reps", "instructions": "Count the sales reps."}`)

	state := graph.NewState("How many reps do we have?", "schema")
	if _, err := p.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.QueryPlan.Complexity != "medium" {
		t.Errorf("complexity = %q, want the medium default", state.QueryPlan.Complexity)
	}
}

func TestPlannerParseFailureFallsBack(t *testing.T) {
	p, mock := newPlannerTest(t)
	mock.SetResponses("Let me think about this question step by step...")

	state := graph.NewState("Compare TRx across territories", "schema")
	action, err := p.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if action != graph.ActionProceed {
		t.Errorf("action = %q, want proceed", action)
	}

	plan := state.QueryPlan
	if plan == nil {
		t.Fatal("no fallback plan recorded")
	}
	if plan.UserIntent != "Failed to analyze the question" {
		t.Errorf("intent = %q", plan.UserIntent)
	}
	if !strings.Contains(plan.Instructions, "Compare TRx across territories") {
		t.Errorf("fallback instructions %q drop the question", plan.Instructions)
	}
	if plan.Complexity != "unknown" {
		t.Errorf("complexity = %q, want unknown", plan.Complexity)
	}
	if state.ErrorMessage == "" {
		t.Error("expected the parse error to be recorded")
	}
}

func TestPlannerPromptCarriesSchemaAndQuery(t *testing.T) {
	p, mock := newPlannerTest(t)
	mock.SetResponses(`{"user_intent": "x", "instructions": "y"}`)

	state := graph.NewState("Which accounts grew fastest?", "Tables: hcp_dim, fact_rx, account_dim")
	if _, err := p.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}

	system, user := systemAndUser(t, mock)
	if !strings.Contains(system, "account_dim") {
		t.Error("system prompt does not embed the schema context")
	}
	if !strings.Contains(user, "Which accounts grew fastest?") {
		t.Error("user prompt does not carry the question")
	}
}

func TestPlannerModelErrorPropagates(t *testing.T) {
	p, mock := newPlannerTest(t)
	mock.SetError("connection refused")

	state := graph.NewState("Top drugs by NRx", "schema")
	if _, err := p.Run(context.Background(), state); err == nil {
		t.Fatal("expected the model error to propagate")
	}
}
