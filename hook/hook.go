// Package hook defines the extension system for automaton. Extensions
// are notified of lifecycle events (rule executed, skipped, failed, etc.)
// and can react to them — auditing, metrics, alerting.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package hook

import (
	"context"
	"time"

	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Invocation lifecycle hooks
// ──────────────────────────────────────────────────

// RuleExecuted is called after an invocation completes its action loop,
// whether or not individual actions failed.
type RuleExecuted interface {
	OnRuleExecuted(ctx context.Context, r *rule.Rule, e *execution.Execution, elapsed time.Duration) error
}

// RuleSkipped is called when an invocation's conditions were not met.
type RuleSkipped interface {
	OnRuleSkipped(ctx context.Context, r *rule.Rule, e *execution.Execution) error
}

// ExecutionFailed is called when an invocation aborts with a system
// error.
type ExecutionFailed interface {
	OnExecutionFailed(ctx context.Context, ruleID id.RuleID, e *execution.Execution, err error) error
}

// ActionFailed is called for each action whose dispatch failed inside an
// otherwise completed invocation.
type ActionFailed interface {
	OnActionFailed(ctx context.Context, r *rule.Rule, out action.Outcome) error
}

// ──────────────────────────────────────────────────
// Trigger hooks
// ──────────────────────────────────────────────────

// ScheduleFired is called when the scheduler submits a due rule.
type ScheduleFired interface {
	OnScheduleFired(ctx context.Context, r *rule.Rule, at time.Time) error
}

// EventPublished is called after a business event is published, with the
// number of rules it matched.
type EventPublished interface {
	OnEventPublished(ctx context.Context, name string, matched int) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
