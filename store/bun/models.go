package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// ── Rule model ────────────────────────────────────────────────────

type ruleModel struct {
	bun.BaseModel `bun:"table:automaton_rules"`

	ID             string     `bun:"id,pk"`
	Name           string     `bun:"name,notnull"`
	Description    string     `bun:"description"`
	Trigger        string     `bun:"trigger,notnull,default:'manual'"`
	Event          string     `bun:"event"`
	Schedule       string     `bun:"schedule"`
	Conditions     []byte     `bun:"conditions,type:jsonb"`
	Actions        []byte     `bun:"actions,type:jsonb"`
	State          string     `bun:"state,notnull,default:'active'"`
	Priority       int        `bun:"priority,notnull,default:0"`
	ExecutionCount int64      `bun:"execution_count,notnull,default:0"`
	SuccessCount   int64      `bun:"success_count,notnull,default:0"`
	FailureCount   int64      `bun:"failure_count,notnull,default:0"`
	LastExecuted   *time.Time `bun:"last_executed"`
	NextExecution  *time.Time `bun:"next_execution"`
	Metadata       []byte     `bun:"metadata,type:jsonb"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

func toRuleModel(r *rule.Rule) (*ruleModel, error) {
	conditions, err := marshalJSON(r.Conditions)
	if err != nil {
		return nil, fmt.Errorf("automaton/bun: marshal conditions: %w", err)
	}
	actions, err := marshalJSON(r.Actions)
	if err != nil {
		return nil, fmt.Errorf("automaton/bun: marshal actions: %w", err)
	}
	metadata, err := marshalJSON(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("automaton/bun: marshal metadata: %w", err)
	}

	return &ruleModel{
		ID:             r.ID.String(),
		Name:           r.Name,
		Description:    r.Description,
		Trigger:        string(r.Trigger),
		Event:          r.Event,
		Schedule:       r.Schedule,
		Conditions:     conditions,
		Actions:        actions,
		State:          string(r.State),
		Priority:       r.Priority,
		ExecutionCount: r.ExecutionCount,
		SuccessCount:   r.SuccessCount,
		FailureCount:   r.FailureCount,
		LastExecuted:   r.LastExecuted,
		NextExecution:  r.NextExecution,
		Metadata:       metadata,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

func fromRuleModel(m *ruleModel) (*rule.Rule, error) {
	parsedID, err := id.ParseRuleID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("automaton/bun: parse rule id %q: %w", m.ID, err)
	}

	r := &rule.Rule{
		Entity: automaton.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             parsedID,
		Name:           m.Name,
		Description:    m.Description,
		Trigger:        rule.Trigger(m.Trigger),
		Event:          m.Event,
		Schedule:       m.Schedule,
		State:          rule.State(m.State),
		Priority:       m.Priority,
		ExecutionCount: m.ExecutionCount,
		SuccessCount:   m.SuccessCount,
		FailureCount:   m.FailureCount,
		LastExecuted:   m.LastExecuted,
		NextExecution:  m.NextExecution,
	}

	if err := unmarshalJSON(m.Conditions, &r.Conditions); err != nil {
		return nil, fmt.Errorf("automaton/bun: unmarshal conditions: %w", err)
	}
	if err := unmarshalJSON(m.Actions, &r.Actions); err != nil {
		return nil, fmt.Errorf("automaton/bun: unmarshal actions: %w", err)
	}
	if err := unmarshalJSON(m.Metadata, &r.Metadata); err != nil {
		return nil, fmt.Errorf("automaton/bun: unmarshal metadata: %w", err)
	}

	return r, nil
}

// ── Execution model ───────────────────────────────────────────────

type executionModel struct {
	bun.BaseModel `bun:"table:automaton_executions"`

	ID          string     `bun:"id,pk"`
	RuleID      string     `bun:"rule_id,notnull"`
	State       string     `bun:"state,notnull"`
	StartedAt   time.Time  `bun:"started_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at"`
	Error       string     `bun:"error"`
	Context     []byte     `bun:"context,type:jsonb"`
	Results     []byte     `bun:"results,type:jsonb"`
}

func toExecutionModel(e *execution.Execution) (*executionModel, error) {
	execCtx, err := marshalJSON(e.Context)
	if err != nil {
		return nil, fmt.Errorf("automaton/bun: marshal context: %w", err)
	}
	results, err := marshalJSON(e.Results)
	if err != nil {
		return nil, fmt.Errorf("automaton/bun: marshal results: %w", err)
	}

	return &executionModel{
		ID:          e.ID.String(),
		RuleID:      e.RuleID.String(),
		State:       string(e.State),
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		Error:       e.Error,
		Context:     execCtx,
		Results:     results,
	}, nil
}

func fromExecutionModel(m *executionModel) (*execution.Execution, error) {
	execID, err := id.ParseExecutionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("automaton/bun: parse execution id %q: %w", m.ID, err)
	}
	ruleID, err := id.ParseRuleID(m.RuleID)
	if err != nil {
		return nil, fmt.Errorf("automaton/bun: parse rule id %q: %w", m.RuleID, err)
	}

	e := &execution.Execution{
		ID:          execID,
		RuleID:      ruleID,
		State:       execution.State(m.State),
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		Error:       m.Error,
	}

	if err := unmarshalJSON(m.Context, &e.Context); err != nil {
		return nil, fmt.Errorf("automaton/bun: unmarshal context: %w", err)
	}
	var results []action.Outcome
	if err := unmarshalJSON(m.Results, &results); err != nil {
		return nil, fmt.Errorf("automaton/bun: unmarshal results: %w", err)
	}
	e.Results = results

	return e, nil
}

// marshalJSON encodes v, returning nil for nil values so JSONB columns
// store NULL instead of the string "null".
func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
