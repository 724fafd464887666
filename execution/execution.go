// Package execution defines the immutable invocation record and the
// append-only history store contract.
package execution

import (
	"time"

	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/id"
)

// State represents the lifecycle of one rule invocation. It is distinct
// from rule.State: an execution can be running, a stored rule cannot.
type State string

const (
	// StateRunning means the invocation is in progress.
	StateRunning State = "running"
	// StateCompleted means the invocation finished; per-action failures
	// are recorded in Results, not here.
	StateCompleted State = "completed"
	// StateFailed means the invocation aborted with a system error.
	StateFailed State = "failed"
)

// Execution is one timestamped record of a rule running against a
// context. It is created when the invocation starts and appended to
// history exactly once at completion — never mutated after append.
type Execution struct {
	ID        id.ExecutionID `json:"id"`
	RuleID    id.RuleID      `json:"rule_id"`
	State     State          `json:"state"`
	StartedAt time.Time      `json:"started_at"`
	// CompletedAt is nil until the execution reaches a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	// Context is the snapshot of the caller-supplied business data.
	Context map[string]any `json:"context,omitempty"`
	// Results holds one outcome per dispatched action, in action order,
	// or a single skipped entry when conditions were not met.
	Results []action.Outcome `json:"results,omitempty"`
}

// Terminal reports whether the execution has reached a final state.
func (e *Execution) Terminal() bool {
	return e.State == StateCompleted || e.State == StateFailed
}

// Clone returns a deep copy of the execution.
func (e *Execution) Clone() *Execution {
	cp := *e

	if e.CompletedAt != nil {
		ts := *e.CompletedAt
		cp.CompletedAt = &ts
	}
	if e.Context != nil {
		cp.Context = make(map[string]any, len(e.Context))
		for k, v := range e.Context {
			cp.Context[k] = v
		}
	}
	if e.Results != nil {
		cp.Results = make([]action.Outcome, len(e.Results))
		copy(cp.Results, e.Results)
	}

	return &cp
}
