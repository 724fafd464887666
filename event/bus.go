// Package event provides the business event bus. Publishing an event
// submits every active rule subscribed to that event name for execution,
// with the event payload merged into the invocation context.
package event

import (
	"context"
	"log/slog"

	"github.com/automatonhq/automaton/hook"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// SubmitFunc is the callback the bus uses to submit matched rules for
// execution. The engine provides the implementation.
type SubmitFunc func(ctx context.Context, ruleID id.RuleID, execCtx map[string]any) error

// Bus fans business events out to event-triggered rules.
type Bus struct {
	rules  rule.Store
	submit SubmitFunc
	hooks  *hook.Registry
	logger *slog.Logger
}

// NewBus creates an event bus over the given rule store.
func NewBus(rules rule.Store, submit SubmitFunc, hooks *hook.Registry, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		rules:  rules,
		submit: submit,
		hooks:  hooks,
		logger: logger,
	}
}

// Publish submits every active event-triggered rule subscribed to name.
// The payload is copied into each invocation context along with an
// "event" key carrying the event name. It returns how many rules were
// submitted; a rule whose submission fails is logged and not counted.
func (b *Bus) Publish(ctx context.Context, name string, payload map[string]any) (int, error) {
	rules, err := b.rules.ListRules(ctx, rule.Filter{
		State:   rule.StateActive,
		Trigger: rule.TriggerEvent,
	})
	if err != nil {
		return 0, err
	}

	matched := 0
	for _, r := range rules {
		if r.Event != name {
			continue
		}

		execCtx := make(map[string]any, len(payload)+1)
		for k, v := range payload {
			execCtx[k] = v
		}
		execCtx["event"] = name

		if err := b.submit(ctx, r.ID, execCtx); err != nil {
			b.logger.Error("event rule submit error",
				slog.String("event", name),
				slog.String("rule_id", r.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		matched++
	}

	if b.hooks != nil {
		b.hooks.EmitEventPublished(ctx, name, matched)
	}

	b.logger.Debug("event published",
		slog.String("event", name),
		slog.Int("matched", matched),
	)
	return matched, nil
}
