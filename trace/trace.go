// Package trace correlates one question's trip through the pipeline.
//
// A Trace is created per request, carried through the workflow in the
// context, and collects per-stage timings. The run id appears in logs
// and API responses so a slow or wrong answer can be traced back to the
// stages that produced it.
package trace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StageTiming records one stage execution.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Action   string        `json:"action"`
	Duration time.Duration `json:"duration"`
}

// Trace accumulates timings for a single pipeline run. Safe for
// concurrent use, although stages execute sequentially today.
type Trace struct {
	RunID   string
	Started time.Time

	mu     sync.Mutex
	stages []StageTiming
}

// New starts a trace with a fresh run id.
func New() *Trace {
	return &Trace{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
}

// RecordStage appends one stage execution to the trace.
func (t *Trace) RecordStage(stage, action string, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, StageTiming{
		Stage:    stage,
		Action:   action,
		Duration: duration,
	})
}

// Stages returns a copy of the recorded stage timings in execution order.
func (t *Trace) Stages() []StageTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageTiming, len(t.stages))
	copy(out, t.stages)
	return out
}

// Duration returns the elapsed time since the trace started.
func (t *Trace) Duration() time.Duration {
	return time.Since(t.Started)
}

type contextKey struct{}

// NewContext attaches the trace to a context.
func NewContext(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the trace attached to ctx, if any.
func FromContext(ctx context.Context) (*Trace, bool) {
	t, ok := ctx.Value(contextKey{}).(*Trace)
	return t, ok
}
