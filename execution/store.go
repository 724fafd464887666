package execution

import (
	"context"

	"github.com/automatonhq/automaton/id"
)

// ListOpts controls filtering and pagination for history queries.
type ListOpts struct {
	// RuleID filters to executions of one rule. Nil matches all rules.
	RuleID id.RuleID
	// Limit is the maximum number of executions to return, newest first.
	// Zero means no limit.
	Limit int
}

// Store defines the append-only history contract. Executions are written
// once, at completion; there is no update operation.
type Store interface {
	// AppendExecution records a terminal execution.
	AppendExecution(ctx context.Context, e *Execution) error

	// GetExecution retrieves an execution by ID.
	GetExecution(ctx context.Context, execID id.ExecutionID) (*Execution, error)

	// ListExecutions returns executions matching the options, newest
	// first.
	ListExecutions(ctx context.Context, opts ListOpts) ([]*Execution, error)
}
