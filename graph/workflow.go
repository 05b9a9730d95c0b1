// Package graph runs the question-answering pipeline as a small state
// machine. The states and the edges between them are fixed: a guardrail
// check, a planning step, SQL generation, validation with a bounded
// retry loop back to generation, and a response writer. Routing lives
// in one transition table keyed by (state, action) so the whole control
// flow is visible in a single place.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alt-coder/synthio/trace"
)

// Action is a routing outcome returned by a stage.
type Action string

const (
	// ActionProceed advances to the next stage in the pipeline.
	ActionProceed Action = "proceed"
	// ActionBlocked diverts to the blocked-response terminal state.
	ActionBlocked Action = "blocked"
	// ActionRetry sends the flow back to SQL generation.
	ActionRetry Action = "retry"
)

// State names one node of the pipeline state machine.
type State string

const (
	StateGuardrail       State = "guardrail"
	StatePlanner         State = "planner"
	StateSQLGenerator    State = "sql_generator"
	StateValidator       State = "validator"
	StateWriter          State = "writer"
	StateBlockedResponse State = "blocked_response"

	// stateEnd is the internal sentinel that stops the run loop.
	stateEnd State = "end"
)

// Node is a single pipeline stage. Run reads what it needs from the
// state, records its results on it, and returns the action that routes
// to the next stage. An error aborts the whole run.
type Node interface {
	Name() string
	Run(ctx context.Context, state *WorkflowState) (Action, error)
}

type transitionKey struct {
	from   State
	action Action
}

// transitions is the complete routing table. An absent entry is a bug
// in the stage that produced the action.
var transitions = map[transitionKey]State{
	{StateGuardrail, ActionProceed}:       StatePlanner,
	{StateGuardrail, ActionBlocked}:       StateBlockedResponse,
	{StatePlanner, ActionProceed}:         StateSQLGenerator,
	{StateSQLGenerator, ActionProceed}:    StateValidator,
	{StateValidator, ActionRetry}:         StateSQLGenerator,
	{StateValidator, ActionProceed}:       StateWriter,
	{StateWriter, ActionProceed}:          stateEnd,
	{StateBlockedResponse, ActionProceed}: stateEnd,
}

// Workflow wires concrete stages into the transition table and runs
// them for one question at a time.
type Workflow struct {
	nodes      map[State]Node
	maxRetries int
	maxSteps   int
}

// New builds a workflow from the five pipeline stages. maxRetries
// bounds how often the validator may send the flow back to SQL
// generation; negative values are treated as zero.
func New(guardrail, planner, sqlGenerator, validator, writer Node, maxRetries int) (*Workflow, error) {
	nodes := map[State]Node{
		StateGuardrail:    guardrail,
		StatePlanner:      planner,
		StateSQLGenerator: sqlGenerator,
		StateValidator:    validator,
		StateWriter:       writer,
	}
	for state, node := range nodes {
		if node == nil {
			return nil, fmt.Errorf("workflow is missing the %s stage", state)
		}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Workflow{
		nodes:      nodes,
		maxRetries: maxRetries,
		// Longest legal path is 3 stages, maxRetries+1 trips through
		// generation and validation, then the writer. Double it so a
		// routing bug trips the guard instead of spinning.
		maxSteps: 2 * (4 + 2*(maxRetries+1)),
	}, nil
}

// MaxRetries returns the retry bound the workflow enforces.
func (w *Workflow) MaxRetries() int {
	return w.maxRetries
}

// Run drives the state machine from the guardrail to a terminal state.
// The state always ends up with FinalResponse set: on success with the
// written answer, on a blocked question with the guardrail's message,
// and on failure with a short apology while the returned error carries
// the cause. A panic inside a stage is recovered and reported the same
// way as an error.
func (w *Workflow) Run(ctx context.Context, state *WorkflowState) (err error) {
	current := StateGuardrail
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s stage panicked: %v", current, r)
			w.fail(state, err)
		}
	}()

	for step := 0; current != stateEnd; step++ {
		if step >= w.maxSteps {
			err := fmt.Errorf("workflow exceeded %d steps, last state %s", w.maxSteps, current)
			w.fail(state, err)
			return err
		}
		if err := ctx.Err(); err != nil {
			w.fail(state, err)
			return err
		}

		var action Action
		started := time.Now()
		if current == StateBlockedResponse {
			w.writeBlockedResponse(state)
			action = ActionProceed
		} else {
			var err error
			action, err = w.nodes[current].Run(ctx, state)
			if err != nil {
				err = fmt.Errorf("%s stage: %w", current, err)
				w.fail(state, err)
				return err
			}
		}
		if tr, ok := trace.FromContext(ctx); ok {
			tr.RecordStage(string(current), string(action), time.Since(started))
		}

		// The retry edge is bounded here, independent of how the
		// validator computed its action.
		if current == StateValidator && action == ActionRetry {
			if state.RetryCount >= w.maxRetries {
				action = ActionProceed
			} else {
				state.RetryCount++
			}
		}

		next, ok := transitions[transitionKey{current, action}]
		if !ok {
			err := fmt.Errorf("no transition from %s on action %q", current, action)
			w.fail(state, err)
			return err
		}

		logrus.WithFields(logrus.Fields{
			"from":   current,
			"action": action,
			"to":     next,
		}).Debug("workflow transition")

		current = next
	}
	return nil
}

// writeBlockedResponse terminates a blocked run with the guardrail's
// message and makes sure no SQL from a previous attempt leaks out.
func (w *Workflow) writeBlockedResponse(state *WorkflowState) {
	state.SQLQuery = ""
	state.FinalResponse = ""
	if state.GuardrailResult != nil {
		state.FinalResponse = state.GuardrailResult.UserResponse
	}
	if state.FinalResponse == "" {
		state.FinalResponse = "I'm not able to process that request. Could you ask a question about the pharmaceutical sales data?"
	}
}

func (w *Workflow) fail(state *WorkflowState, err error) {
	state.ErrorMessage = err.Error()
	if state.FinalResponse == "" {
		state.FinalResponse = fmt.Sprintf("Something went wrong while answering your question: %v. Please try again.", err)
	}
	logrus.WithError(err).Error("workflow aborted")
}
