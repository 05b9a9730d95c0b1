// Package agents implements the five pipeline stages: guardrail,
// planner, SQL generator, validator, and writer. Each stage renders its
// prompt, calls the model once, and records its result on the shared
// workflow state. Stages degrade on malformed model output instead of
// failing: the guardrail fails open, the planner falls back to a
// pass-through instruction, and the validator requests a retry. Only
// transport-level model errors abort the run.
package agents

import (
	"context"

	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/prompt"
)

// base carries what every stage needs: a model and the prompt registry.
type base struct {
	provider llm.LLMProvider
	prompts  *prompt.Registry
}

// invoke renders the stage prompt, sends it to the model, and returns
// the raw reply text.
func (b base) invoke(ctx context.Context, stage string, data any) (string, error) {
	system, user, err := b.prompts.Render(stage, data)
	if err != nil {
		return "", err
	}
	reply, err := b.provider.CallLLM(ctx, llm.Exchange(system, user))
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}
