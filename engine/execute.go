package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/id"
	mw "github.com/automatonhq/automaton/middleware"
	"github.com/automatonhq/automaton/rule"
)

// ExecuteRule runs one rule invocation synchronously: conditions are
// evaluated, then each action is dispatched in order with per-action
// failure isolation.
//
// A missing rule is the only caller-visible error. Everything else —
// unmet conditions, action failures, store failures mid-invocation — is
// captured inside the returned execution record.
func (e *Engine) ExecuteRule(ctx context.Context, ruleID id.RuleID, execCtx map[string]any) (*execution.Execution, error) {
	r, err := e.store.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	start := e.now()
	exec := &execution.Execution{
		ID:        id.NewExecutionID(),
		RuleID:    r.ID,
		State:     execution.StateRunning,
		StartedAt: start,
		Context:   execCtx,
	}

	if !e.conditions.Evaluate(r.Conditions, execCtx) {
		return e.finishSkipped(ctx, r, exec), nil
	}

	// Actions run sequentially; one failure never stops the loop.
	for _, act := range r.Actions {
		out := e.dispatchAction(ctx, r, act, execCtx)
		exec.Results = append(exec.Results, out)
		if out.Status == action.StatusFailed {
			e.hooks.EmitActionFailed(ctx, r, out)
		}
	}

	done := e.now()
	exec.State = execution.StateCompleted
	exec.CompletedAt = &done

	if err := e.store.AppendExecution(ctx, exec); err != nil {
		return e.failExecution(ctx, r.ID, exec, err), nil
	}
	if err := e.store.RecordResult(ctx, r.ID, rule.Result{At: done}); err != nil {
		return e.failExecution(ctx, r.ID, exec, err), nil
	}

	e.hooks.EmitRuleExecuted(ctx, r, exec, done.Sub(start))

	e.logger.Info("rule executed",
		slog.String("rule_id", r.ID.String()),
		slog.String("rule_name", r.Name),
		slog.String("execution_id", exec.ID.String()),
		slog.Int("actions", len(exec.Results)),
	)
	return exec, nil
}

// SubmitRule queues an asynchronous invocation through the worker pool.
// The scheduler and event bus go through here.
func (e *Engine) SubmitRule(_ context.Context, ruleID id.RuleID, execCtx map[string]any) error {
	return e.pool.Submit(func(taskCtx context.Context) {
		if _, err := e.ExecuteRule(taskCtx, ruleID, execCtx); err != nil {
			e.logger.Error("async invocation error",
				slog.String("rule_id", ruleID.String()),
				slog.String("error", err.Error()),
			)
		}
	})
}

// dispatchAction runs one action through the middleware chain and
// normalizes the result into an Outcome. When middleware short-circuits
// before the handler produced an outcome (panic, deadline), a failed
// outcome is synthesized so the execution record stays complete.
func (e *Engine) dispatchAction(ctx context.Context, r *rule.Rule, act rule.Action, execCtx map[string]any) action.Outcome {
	var out action.Outcome
	inv := &mw.Invocation{
		RuleID:     r.ID,
		RuleName:   r.Name,
		ActionType: act.Type,
		Timeout:    e.cfg.ActionTimeout,
	}

	err := e.chain(ctx, inv, func(ctx context.Context) error {
		out = e.actions.Execute(ctx, act, execCtx)
		if out.Status == action.StatusFailed {
			return errors.New(out.Error)
		}
		return nil
	})
	if err != nil && out.Timestamp.IsZero() {
		out = action.Outcome{
			Type:      act.Type,
			Status:    action.StatusFailed,
			Error:     err.Error(),
			Timestamp: e.now(),
		}
	}
	return out
}

// finishSkipped completes an invocation whose conditions were not met:
// a single skipped result, no counter updates.
func (e *Engine) finishSkipped(ctx context.Context, r *rule.Rule, exec *execution.Execution) *execution.Execution {
	done := e.now()
	exec.State = execution.StateCompleted
	exec.CompletedAt = &done
	exec.Results = []action.Outcome{{
		Status:    action.StatusSkipped,
		Result:    "conditions not met",
		Timestamp: done,
	}}

	if err := e.store.AppendExecution(ctx, exec); err != nil {
		return e.failExecution(ctx, r.ID, exec, err)
	}

	e.hooks.EmitRuleSkipped(ctx, r, exec)

	e.logger.Debug("rule skipped",
		slog.String("rule_id", r.ID.String()),
		slog.String("rule_name", r.Name),
	)
	return exec
}

// failExecution marks an invocation aborted by a system error. The
// record is appended best-effort and the failure counter incremented;
// both are logged, not surfaced, since the execution record itself is
// the caller's answer.
func (e *Engine) failExecution(ctx context.Context, ruleID id.RuleID, exec *execution.Execution, cause error) *execution.Execution {
	done := e.now()
	exec.State = execution.StateFailed
	exec.Error = cause.Error()
	exec.CompletedAt = &done

	if err := e.store.AppendExecution(ctx, exec); err != nil {
		e.logger.Error("append failed execution error",
			slog.String("execution_id", exec.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	if err := e.store.RecordResult(ctx, ruleID, rule.Result{At: done, Failed: true}); err != nil {
		e.logger.Error("record failure result error",
			slog.String("rule_id", ruleID.String()),
			slog.String("error", err.Error()),
		)
	}

	e.hooks.EmitExecutionFailed(ctx, ruleID, exec, cause)

	e.logger.Error("rule invocation failed",
		slog.String("rule_id", ruleID.String()),
		slog.String("execution_id", exec.ID.String()),
		slog.String("error", cause.Error()),
	)
	return exec
}
