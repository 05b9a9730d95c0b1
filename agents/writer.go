package agents

import (
	"context"
	"strings"

	"github.com/alt-coder/synthio/graph"
	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/prompt"
)

// Writer turns the raw result set into the answer shown to the user.
// It is the one stage whose model reply is used verbatim: the trimmed
// text becomes the final response, no JSON involved.
type Writer struct {
	base
}

// NewWriter returns the answer-writing stage.
func NewWriter(provider llm.LLMProvider, prompts *prompt.Registry) *Writer {
	return &Writer{base{provider: provider, prompts: prompts}}
}

// Name identifies the stage in logs and traces.
func (w *Writer) Name() string { return prompt.Writer }

// Run renders the result table and validation notes into the writer
// prompt and records the model's prose answer on the state.
func (w *Writer) Run(ctx context.Context, state *graph.WorkflowState) (graph.Action, error) {
	plan := state.QueryPlan
	if plan == nil {
		plan = &graph.QueryPlan{}
	}
	sqlResult := state.SQLResult
	if sqlResult == nil {
		sqlResult = &graph.SQLResult{}
	}

	resultData := ""
	if sqlResult.Success {
		resultData = formatResultTable(sqlResult, maxWriterRows)
	}

	raw, err := w.invoke(ctx, prompt.Writer, prompt.WriterData{
		Query:           state.UserQuery,
		Intent:          plan.UserIntent,
		SQL:             state.SQLQuery,
		RowCount:        sqlResult.RowCount,
		ResultData:      resultData,
		ValidationNotes: formatValidationNotes(state.ValidationResult),
	})
	if err != nil {
		return "", err
	}

	state.FinalResponse = strings.TrimSpace(raw)
	return graph.ActionProceed, nil
}
