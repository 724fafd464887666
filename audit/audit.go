// Package audit provides a hook extension that bridges engine lifecycle
// events to an audit trail backend. Each lifecycle hook emits a
// structured audit event through an injected Recorder, so compliance
// teams can answer "which automation touched this record, and when".
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/hook"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// Compile-time interface checks.
var (
	_ hook.Extension       = (*Extension)(nil)
	_ hook.RuleExecuted    = (*Extension)(nil)
	_ hook.RuleSkipped     = (*Extension)(nil)
	_ hook.ExecutionFailed = (*Extension)(nil)
	_ hook.ActionFailed    = (*Extension)(nil)
	_ hook.ScheduleFired   = (*Extension)(nil)
	_ hook.EventPublished  = (*Extension)(nil)
)

// Event actions. Each constant corresponds to one lifecycle hook and
// becomes the Action field of the audit event.
const (
	ActionRuleExecuted    = "rule.executed"
	ActionRuleSkipped     = "rule.skipped"
	ActionExecutionFailed = "execution.failed"
	ActionActionFailed    = "action.failed"
	ActionScheduleFired   = "schedule.fired"
	ActionEventPublished  = "event.published"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Event is one structured audit entry.
type Event struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id,omitempty"`
	Outcome    string         `json:"outcome"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Recorder is the interface audit backends must implement. Defined
// locally so callers can bridge to any audit store without a module
// dependency.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *Event) error
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Option configures an Extension.
type Option func(*Extension)

// WithActions restricts the extension to emit only the listed actions.
// By default all actions are enabled.
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			e.enabled[a] = true
		}
	}
}

// WithLogger sets a custom logger for the extension.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}

// Extension bridges engine lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided
// Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Extension.
func (e *Extension) Name() string { return "audit" }

func (e *Extension) emit(ctx context.Context, evt *Event) error {
	if e.enabled != nil && !e.enabled[evt.Action] {
		return nil
	}
	if err := e.recorder.Record(ctx, evt); err != nil {
		e.logger.Error("audit record failed",
			slog.String("action", evt.Action),
			slog.String("error", err.Error()),
		)
	}
	// Recording failures are logged, never surfaced: auditing must not
	// break invocations.
	return nil
}

// OnRuleExecuted implements hook.RuleExecuted.
func (e *Extension) OnRuleExecuted(ctx context.Context, r *rule.Rule, ex *execution.Execution, elapsed time.Duration) error {
	failed := 0
	for _, out := range ex.Results {
		if out.Status == action.StatusFailed {
			failed++
		}
	}
	return e.emit(ctx, &Event{
		Action:     ActionRuleExecuted,
		Resource:   "rule",
		ResourceID: r.ID.String(),
		Outcome:    OutcomeSuccess,
		Metadata: map[string]any{
			"execution_id":   ex.ID.String(),
			"rule_name":      r.Name,
			"actions":        len(ex.Results),
			"actions_failed": failed,
			"elapsed_ms":     elapsed.Milliseconds(),
		},
	})
}

// OnRuleSkipped implements hook.RuleSkipped.
func (e *Extension) OnRuleSkipped(ctx context.Context, r *rule.Rule, ex *execution.Execution) error {
	return e.emit(ctx, &Event{
		Action:     ActionRuleSkipped,
		Resource:   "rule",
		ResourceID: r.ID.String(),
		Outcome:    OutcomeSkipped,
		Reason:     "conditions not met",
		Metadata: map[string]any{
			"execution_id": ex.ID.String(),
			"rule_name":    r.Name,
		},
	})
}

// OnExecutionFailed implements hook.ExecutionFailed.
func (e *Extension) OnExecutionFailed(ctx context.Context, ruleID id.RuleID, ex *execution.Execution, cause error) error {
	return e.emit(ctx, &Event{
		Action:     ActionExecutionFailed,
		Resource:   "execution",
		ResourceID: ex.ID.String(),
		Outcome:    OutcomeFailure,
		Reason:     cause.Error(),
		Metadata: map[string]any{
			"rule_id": ruleID.String(),
		},
	})
}

// OnActionFailed implements hook.ActionFailed.
func (e *Extension) OnActionFailed(ctx context.Context, r *rule.Rule, out action.Outcome) error {
	return e.emit(ctx, &Event{
		Action:     ActionActionFailed,
		Resource:   "rule",
		ResourceID: r.ID.String(),
		Outcome:    OutcomeFailure,
		Reason:     out.Error,
		Metadata: map[string]any{
			"action_type": out.Type,
			"rule_name":   r.Name,
		},
	})
}

// OnScheduleFired implements hook.ScheduleFired.
func (e *Extension) OnScheduleFired(ctx context.Context, r *rule.Rule, at time.Time) error {
	return e.emit(ctx, &Event{
		Action:     ActionScheduleFired,
		Resource:   "rule",
		ResourceID: r.ID.String(),
		Outcome:    OutcomeSuccess,
		Metadata: map[string]any{
			"rule_name": r.Name,
			"fired_at":  at,
		},
	})
}

// OnEventPublished implements hook.EventPublished.
func (e *Extension) OnEventPublished(ctx context.Context, name string, matched int) error {
	return e.emit(ctx, &Event{
		Action:   ActionEventPublished,
		Resource: "event",
		Outcome:  OutcomeSuccess,
		Metadata: map[string]any{
			"event_name": name,
			"matched":    matched,
		},
	})
}
