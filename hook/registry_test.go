package hook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/hook"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// recordingExt implements every hook and records the events it sees.
type recordingExt struct {
	name   string
	events []string
	err    error
}

func (r *recordingExt) Name() string { return r.name }

func (r *recordingExt) OnRuleExecuted(_ context.Context, _ *rule.Rule, _ *execution.Execution, _ time.Duration) error {
	r.events = append(r.events, "rule_executed")
	return r.err
}

func (r *recordingExt) OnRuleSkipped(_ context.Context, _ *rule.Rule, _ *execution.Execution) error {
	r.events = append(r.events, "rule_skipped")
	return r.err
}

func (r *recordingExt) OnExecutionFailed(_ context.Context, _ id.RuleID, _ *execution.Execution, _ error) error {
	r.events = append(r.events, "execution_failed")
	return r.err
}

func (r *recordingExt) OnActionFailed(_ context.Context, _ *rule.Rule, _ action.Outcome) error {
	r.events = append(r.events, "action_failed")
	return r.err
}

func (r *recordingExt) OnShutdown(_ context.Context) error {
	r.events = append(r.events, "shutdown")
	return r.err
}

// skipOnlyExt implements just one hook.
type skipOnlyExt struct {
	skips int
}

func (s *skipOnlyExt) Name() string { return "skip-only" }

func (s *skipOnlyExt) OnRuleSkipped(_ context.Context, _ *rule.Rule, _ *execution.Execution) error {
	s.skips++
	return nil
}

func testRule() *rule.Rule {
	return rule.New(rule.Spec{Name: "hooked"}, time.Now().UTC())
}

func testExecution(r *rule.Rule) *execution.Execution {
	return &execution.Execution{
		ID:        id.NewExecutionID(),
		RuleID:    r.ID,
		State:     execution.StateCompleted,
		StartedAt: time.Now().UTC(),
	}
}

func TestRegistry_DispatchesToImplementedHooks(t *testing.T) {
	reg := hook.NewRegistry(nil)
	full := &recordingExt{name: "full"}
	skip := &skipOnlyExt{}
	reg.Register(full)
	reg.Register(skip)

	ctx := context.Background()
	r := testRule()
	e := testExecution(r)

	reg.EmitRuleExecuted(ctx, r, e, time.Millisecond)
	reg.EmitRuleSkipped(ctx, r, e)
	reg.EmitExecutionFailed(ctx, r.ID, e, errors.New("store down"))
	reg.EmitActionFailed(ctx, r, action.Outcome{Type: "email", Status: action.StatusFailed})
	reg.EmitShutdown(ctx)

	want := []string{"rule_executed", "rule_skipped", "execution_failed", "action_failed", "shutdown"}
	if len(full.events) != len(want) {
		t.Fatalf("events = %v, want %v", full.events, want)
	}
	for i, ev := range want {
		if full.events[i] != ev {
			t.Errorf("events[%d] = %q, want %q", i, full.events[i], ev)
		}
	}

	if skip.skips != 1 {
		t.Errorf("skip-only extension saw %d skips, want 1", skip.skips)
	}
}

func TestRegistry_HookErrorsAreNotPropagated(t *testing.T) {
	reg := hook.NewRegistry(nil)
	failing := &recordingExt{name: "failing", err: errors.New("hook boom")}
	after := &recordingExt{name: "after"}
	reg.Register(failing)
	reg.Register(after)

	r := testRule()
	reg.EmitRuleSkipped(context.Background(), r, testExecution(r))

	// The failing hook must not prevent later extensions from running.
	if len(after.events) != 1 {
		t.Errorf("second extension saw %d events, want 1", len(after.events))
	}
}

func TestRegistry_Extensions(t *testing.T) {
	reg := hook.NewRegistry(nil)
	a := &recordingExt{name: "a"}
	b := &recordingExt{name: "b"}
	reg.Register(a)
	reg.Register(b)

	exts := reg.Extensions()
	if len(exts) != 2 || exts[0].Name() != "a" || exts[1].Name() != "b" {
		t.Errorf("unexpected extensions: %v", exts)
	}
}
