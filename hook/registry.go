package hook

import (
	"context"
	"log/slog"
	"time"

	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type ruleExecutedEntry struct {
	name string
	hook RuleExecuted
}

type ruleSkippedEntry struct {
	name string
	hook RuleSkipped
}

type executionFailedEntry struct {
	name string
	hook ExecutionFailed
}

type actionFailedEntry struct {
	name string
	hook ActionFailed
}

type scheduleFiredEntry struct {
	name string
	hook ScheduleFired
}

type eventPublishedEntry struct {
	name string
	hook EventPublished
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// Hook errors are logged and never propagated: an extension cannot break
// an invocation.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	ruleExecuted    []ruleExecutedEntry
	ruleSkipped     []ruleSkippedEntry
	executionFailed []executionFailedEntry
	actionFailed    []actionFailedEntry
	scheduleFired   []scheduleFiredEntry
	eventPublished  []eventPublishedEntry
	shutdown        []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(RuleExecuted); ok {
		r.ruleExecuted = append(r.ruleExecuted, ruleExecutedEntry{name, h})
	}
	if h, ok := e.(RuleSkipped); ok {
		r.ruleSkipped = append(r.ruleSkipped, ruleSkippedEntry{name, h})
	}
	if h, ok := e.(ExecutionFailed); ok {
		r.executionFailed = append(r.executionFailed, executionFailedEntry{name, h})
	}
	if h, ok := e.(ActionFailed); ok {
		r.actionFailed = append(r.actionFailed, actionFailedEntry{name, h})
	}
	if h, ok := e.(ScheduleFired); ok {
		r.scheduleFired = append(r.scheduleFired, scheduleFiredEntry{name, h})
	}
	if h, ok := e.(EventPublished); ok {
		r.eventPublished = append(r.eventPublished, eventPublishedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns the registered extensions in registration order.
func (r *Registry) Extensions() []Extension {
	return r.extensions
}

func (r *Registry) hookError(name, event string, err error) {
	r.logger.Error("extension hook error",
		slog.String("extension", name),
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}

// EmitRuleExecuted notifies extensions that an invocation completed.
func (r *Registry) EmitRuleExecuted(ctx context.Context, ru *rule.Rule, e *execution.Execution, elapsed time.Duration) {
	for _, entry := range r.ruleExecuted {
		if err := entry.hook.OnRuleExecuted(ctx, ru, e, elapsed); err != nil {
			r.hookError(entry.name, "rule_executed", err)
		}
	}
}

// EmitRuleSkipped notifies extensions that an invocation was skipped.
func (r *Registry) EmitRuleSkipped(ctx context.Context, ru *rule.Rule, e *execution.Execution) {
	for _, entry := range r.ruleSkipped {
		if err := entry.hook.OnRuleSkipped(ctx, ru, e); err != nil {
			r.hookError(entry.name, "rule_skipped", err)
		}
	}
}

// EmitExecutionFailed notifies extensions that an invocation aborted.
func (r *Registry) EmitExecutionFailed(ctx context.Context, ruleID id.RuleID, e *execution.Execution, cause error) {
	for _, entry := range r.executionFailed {
		if err := entry.hook.OnExecutionFailed(ctx, ruleID, e, cause); err != nil {
			r.hookError(entry.name, "execution_failed", err)
		}
	}
}

// EmitActionFailed notifies extensions that a single action failed.
func (r *Registry) EmitActionFailed(ctx context.Context, ru *rule.Rule, out action.Outcome) {
	for _, entry := range r.actionFailed {
		if err := entry.hook.OnActionFailed(ctx, ru, out); err != nil {
			r.hookError(entry.name, "action_failed", err)
		}
	}
}

// EmitScheduleFired notifies extensions that a scheduled rule fired.
func (r *Registry) EmitScheduleFired(ctx context.Context, ru *rule.Rule, at time.Time) {
	for _, entry := range r.scheduleFired {
		if err := entry.hook.OnScheduleFired(ctx, ru, at); err != nil {
			r.hookError(entry.name, "schedule_fired", err)
		}
	}
}

// EmitEventPublished notifies extensions that a business event was
// published.
func (r *Registry) EmitEventPublished(ctx context.Context, name string, matched int) {
	for _, entry := range r.eventPublished {
		if err := entry.hook.OnEventPublished(ctx, name, matched); err != nil {
			r.hookError(entry.name, "event_published", err)
		}
	}
}

// EmitShutdown notifies extensions of graceful shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, entry := range r.shutdown {
		if err := entry.hook.OnShutdown(ctx); err != nil {
			r.hookError(entry.name, "shutdown", err)
		}
	}
}
