package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/engine"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
	"github.com/automatonhq/automaton/store/memory"
)

// testEngine builds an engine over a fresh memory store with a
// caller-controlled action registry.
func testEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *action.Registry) {
	t.Helper()
	reg := action.NewRegistry(nil)
	eng, err := engine.New(memory.New(), append(opts, engine.WithActionRegistry(reg))...)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng, reg
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := engine.New(nil); !errors.Is(err, automaton.ErrNoStore) {
		t.Errorf("New(nil) = %v, want ErrNoStore", err)
	}
}

func TestCreateRule_ValidatesSchedule(t *testing.T) {
	eng, _ := testEngine(t)

	_, err := eng.CreateRule(context.Background(), rule.Spec{
		Name:     "bad schedule",
		Trigger:  rule.TriggerScheduled,
		Schedule: "definitely not cron",
	})
	if !errors.Is(err, automaton.ErrBadSchedule) {
		t.Errorf("CreateRule = %v, want ErrBadSchedule", err)
	}

	r, err := eng.CreateRule(context.Background(), rule.Spec{
		Name:     "hourly",
		Trigger:  rule.TriggerScheduled,
		Schedule: "@every 1h",
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if r.NextExecution == nil {
		t.Error("scheduled rule was created without a next execution")
	}
}

func TestUpdateRule_Validation(t *testing.T) {
	eng, _ := testEngine(t)
	r, err := eng.CreateRule(context.Background(), rule.Spec{Name: "to update"})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	bad := rule.State("running")
	if _, err := eng.UpdateRule(context.Background(), r.ID, rule.Update{State: &bad}); !errors.Is(err, automaton.ErrInvalidState) {
		t.Errorf("update with bad state = %v, want ErrInvalidState", err)
	}

	badSched := "nope"
	if _, err := eng.UpdateRule(context.Background(), r.ID, rule.Update{Schedule: &badSched}); !errors.Is(err, automaton.ErrBadSchedule) {
		t.Errorf("update with bad schedule = %v, want ErrBadSchedule", err)
	}

	paused := rule.StatePaused
	got, err := eng.UpdateRule(context.Background(), r.ID, rule.Update{State: &paused})
	if err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	if got.State != rule.StatePaused {
		t.Errorf("state = %s, want paused", got.State)
	}
}

func TestExecuteRule_NotFound(t *testing.T) {
	eng, _ := testEngine(t)

	_, err := eng.ExecuteRule(context.Background(), id.NewRuleID(), nil)
	if !errors.Is(err, automaton.ErrRuleNotFound) {
		t.Errorf("ExecuteRule = %v, want ErrRuleNotFound", err)
	}
}

func TestExecuteRule_SkipLeavesCountersUntouched(t *testing.T) {
	eng, reg := testEngine(t)
	reg.Register("echo", func(_ context.Context, _, _ map[string]any) (any, error) {
		return "ran", nil
	})

	r, err := eng.CreateRule(context.Background(), rule.Spec{
		Name:       "high value orders",
		Conditions: []rule.Condition{{Field: "amount", Operator: "greater_than", Value: 100}},
		Actions:    []rule.Action{{Type: "echo"}},
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	exec, err := eng.ExecuteRule(context.Background(), r.ID, map[string]any{"amount": 50})
	if err != nil {
		t.Fatalf("ExecuteRule: %v", err)
	}

	if exec.State != execution.StateCompleted {
		t.Errorf("state = %s, want completed", exec.State)
	}
	if len(exec.Results) != 1 || exec.Results[0].Status != action.StatusSkipped {
		t.Fatalf("results = %v, want a single skipped entry", exec.Results)
	}

	got, _ := eng.GetRule(context.Background(), r.ID)
	if got.ExecutionCount != 0 || got.SuccessCount != 0 || got.FailureCount != 0 {
		t.Errorf("counters = %d/%d/%d after skip, want 0/0/0",
			got.ExecutionCount, got.SuccessCount, got.FailureCount)
	}

	// The skip still lands in history.
	hist, _ := eng.ListExecutions(context.Background(), execution.ListOpts{RuleID: r.ID})
	if len(hist) != 1 {
		t.Errorf("history length = %d, want 1", len(hist))
	}
}

func TestExecuteRule_ConditionsPass(t *testing.T) {
	eng, reg := testEngine(t)
	reg.Register("echo", func(_ context.Context, _, execCtx map[string]any) (any, error) {
		return execCtx["amount"], nil
	})

	r, _ := eng.CreateRule(context.Background(), rule.Spec{
		Name:       "high value orders",
		Conditions: []rule.Condition{{Field: "amount", Operator: "greater_than", Value: 100}},
		Actions:    []rule.Action{{Type: "echo"}},
	})

	exec, err := eng.ExecuteRule(context.Background(), r.ID, map[string]any{"amount": 150})
	if err != nil {
		t.Fatalf("ExecuteRule: %v", err)
	}
	if exec.State != execution.StateCompleted {
		t.Errorf("state = %s, want completed", exec.State)
	}
	if len(exec.Results) != 1 || exec.Results[0].Status != action.StatusSuccess {
		t.Fatalf("results = %v, want one success", exec.Results)
	}

	got, _ := eng.GetRule(context.Background(), r.ID)
	if got.ExecutionCount != 1 || got.SuccessCount != 1 || got.FailureCount != 0 {
		t.Errorf("counters = %d/%d/%d, want 1/1/0",
			got.ExecutionCount, got.SuccessCount, got.FailureCount)
	}
	if got.LastExecuted == nil {
		t.Error("last executed was not set")
	}
}

func TestExecuteRule_ActionFailureIsIsolated(t *testing.T) {
	eng, reg := testEngine(t)
	var order []string
	reg.Register("first", func(_ context.Context, _, _ map[string]any) (any, error) {
		order = append(order, "first")
		return "ok", nil
	})
	reg.Register("second", func(_ context.Context, _, _ map[string]any) (any, error) {
		order = append(order, "second")
		return nil, fmt.Errorf("gateway unavailable")
	})
	reg.Register("third", func(_ context.Context, _, _ map[string]any) (any, error) {
		order = append(order, "third")
		return "ok", nil
	})

	r, _ := eng.CreateRule(context.Background(), rule.Spec{
		Name: "three step",
		Actions: []rule.Action{
			{Type: "first"}, {Type: "second"}, {Type: "third"},
		},
	})

	exec, err := eng.ExecuteRule(context.Background(), r.ID, nil)
	if err != nil {
		t.Fatalf("ExecuteRule: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("ran %d actions, want 3 (failure must not stop the loop)", len(order))
	}
	if len(exec.Results) != 3 {
		t.Fatalf("results = %d entries, want 3", len(exec.Results))
	}
	if exec.Results[0].Status != action.StatusSuccess ||
		exec.Results[1].Status != action.StatusFailed ||
		exec.Results[2].Status != action.StatusSuccess {
		t.Errorf("statuses = %s/%s/%s, want success/failed/success",
			exec.Results[0].Status, exec.Results[1].Status, exec.Results[2].Status)
	}
	if exec.Results[1].Error != "gateway unavailable" {
		t.Errorf("failed result error = %q", exec.Results[1].Error)
	}

	// Per-action failure still counts the invocation as a success.
	if exec.State != execution.StateCompleted {
		t.Errorf("state = %s, want completed", exec.State)
	}
	got, _ := eng.GetRule(context.Background(), r.ID)
	if got.ExecutionCount != 1 || got.SuccessCount != 1 || got.FailureCount != 0 {
		t.Errorf("counters = %d/%d/%d, want 1/1/0",
			got.ExecutionCount, got.SuccessCount, got.FailureCount)
	}
}

func TestExecuteRule_PanicBecomesFailedOutcome(t *testing.T) {
	eng, reg := testEngine(t)
	reg.Register("explodes", func(_ context.Context, _, _ map[string]any) (any, error) {
		panic("handler bug")
	})

	r, _ := eng.CreateRule(context.Background(), rule.Spec{
		Name:    "panicky",
		Actions: []rule.Action{{Type: "explodes"}},
	})

	exec, err := eng.ExecuteRule(context.Background(), r.ID, nil)
	if err != nil {
		t.Fatalf("ExecuteRule: %v", err)
	}
	if exec.State != execution.StateCompleted {
		t.Errorf("state = %s, want completed (panic is an isolated action failure)", exec.State)
	}
	if len(exec.Results) != 1 || exec.Results[0].Status != action.StatusFailed {
		t.Fatalf("results = %v, want one failed entry", exec.Results)
	}
}

func TestExecuteRule_UnknownActionType(t *testing.T) {
	eng, _ := testEngine(t)
	r, _ := eng.CreateRule(context.Background(), rule.Spec{
		Name:    "unregistered",
		Actions: []rule.Action{{Type: "does_not_exist"}},
	})

	exec, err := eng.ExecuteRule(context.Background(), r.ID, nil)
	if err != nil {
		t.Fatalf("ExecuteRule: %v", err)
	}
	if len(exec.Results) != 1 || exec.Results[0].Status != action.StatusFailed {
		t.Fatalf("results = %v, want one failed entry", exec.Results)
	}
	if exec.Results[0].Error != "unknown action type" {
		t.Errorf("error = %q, want unknown action type", exec.Results[0].Error)
	}
}

// failingAppendStore wraps the memory store and fails AppendExecution
// for completed executions to exercise the system-error path.
type failingAppendStore struct {
	*memory.Store
	failCompleted bool
}

func (s *failingAppendStore) AppendExecution(ctx context.Context, e *execution.Execution) error {
	if s.failCompleted && e.State == execution.StateCompleted {
		return fmt.Errorf("history unavailable")
	}
	return s.Store.AppendExecution(ctx, e)
}

func TestExecuteRule_SystemErrorMarksFailed(t *testing.T) {
	store := &failingAppendStore{Store: memory.New(), failCompleted: true}
	reg := action.NewRegistry(nil)
	reg.Register("echo", func(_ context.Context, _, _ map[string]any) (any, error) {
		return "ok", nil
	})
	eng, err := engine.New(store, engine.WithActionRegistry(reg))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	r, _ := eng.CreateRule(context.Background(), rule.Spec{
		Name:    "doomed",
		Actions: []rule.Action{{Type: "echo"}},
	})

	exec, execErr := eng.ExecuteRule(context.Background(), r.ID, nil)
	if execErr != nil {
		t.Fatalf("ExecuteRule must not surface system errors, got %v", execErr)
	}
	if exec.State != execution.StateFailed {
		t.Errorf("state = %s, want failed", exec.State)
	}
	if exec.Error == "" {
		t.Error("failed execution carries no error message")
	}

	got, _ := eng.GetRule(context.Background(), r.ID)
	if got.FailureCount != 1 {
		t.Errorf("failure count = %d, want 1", got.FailureCount)
	}
	if got.SuccessCount != 0 {
		t.Errorf("success count = %d, want 0", got.SuccessCount)
	}
}

func TestEngine_AsyncSubmit(t *testing.T) {
	eng, reg := testEngine(t)
	ran := make(chan struct{})
	reg.Register("signal", func(_ context.Context, _, _ map[string]any) (any, error) {
		close(ran)
		return nil, nil
	})

	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop(context.Background())

	r, _ := eng.CreateRule(context.Background(), rule.Spec{
		Name:    "async",
		Actions: []rule.Action{{Type: "signal"}},
	})
	if err := eng.SubmitRule(context.Background(), r.ID, nil); err != nil {
		t.Fatalf("SubmitRule: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("async invocation never ran")
	}
}
