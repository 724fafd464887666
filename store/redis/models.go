package redisstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// Hash field names for rule entities. The definition travels as one
// msgpack blob in "data"; fields the store mutates independently —
// counters and scheduling timestamps — get their own hash fields so
// HIncrBy and HSet can touch them without rewriting the blob.
const (
	fieldData           = "data"
	fieldExecutionCount = "execution_count"
	fieldSuccessCount   = "success_count"
	fieldFailureCount   = "failure_count"
	fieldLastExecuted   = "last_executed"
	fieldNextExecution  = "next_execution"
	fieldUpdatedAt      = "updated_at"
)

// ruleData is the definition half of a rule: everything RecordResult and
// SetNextExecution never touch.
type ruleData struct {
	ID          string           `msgpack:"id"`
	Name        string           `msgpack:"name"`
	Description string           `msgpack:"description,omitempty"`
	Trigger     string           `msgpack:"trigger"`
	Event       string           `msgpack:"event,omitempty"`
	Schedule    string           `msgpack:"schedule,omitempty"`
	Conditions  []rule.Condition `msgpack:"conditions,omitempty"`
	Actions     []rule.Action    `msgpack:"actions,omitempty"`
	State       string           `msgpack:"state"`
	Priority    int              `msgpack:"priority"`
	Metadata    map[string]any   `msgpack:"metadata,omitempty"`
	CreatedAt   time.Time        `msgpack:"created_at"`
}

func encodeRuleData(r *rule.Rule) ([]byte, error) {
	blob, err := msgpack.Marshal(&ruleData{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		Trigger:     string(r.Trigger),
		Event:       r.Event,
		Schedule:    r.Schedule,
		Conditions:  r.Conditions,
		Actions:     r.Actions,
		State:       string(r.State),
		Priority:    r.Priority,
		Metadata:    r.Metadata,
		CreatedAt:   r.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: encode rule: %w", err)
	}
	return blob, nil
}

// ruleFromHash reassembles a rule from an HGetAll result.
func ruleFromHash(fields map[string]string) (*rule.Rule, error) {
	var d ruleData
	if err := msgpack.Unmarshal([]byte(fields[fieldData]), &d); err != nil {
		return nil, fmt.Errorf("automaton/redis: decode rule: %w", err)
	}

	ruleID, err := id.ParseRuleID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: rule id: %w", err)
	}

	r := &rule.Rule{
		ID:          ruleID,
		Name:        d.Name,
		Description: d.Description,
		Trigger:     rule.Trigger(d.Trigger),
		Event:       d.Event,
		Schedule:    d.Schedule,
		Conditions:  d.Conditions,
		Actions:     d.Actions,
		State:       rule.State(d.State),
		Priority:    d.Priority,
		Metadata:    d.Metadata,
	}
	r.CreatedAt = d.CreatedAt

	if r.ExecutionCount, err = parseCounter(fields[fieldExecutionCount]); err != nil {
		return nil, err
	}
	if r.SuccessCount, err = parseCounter(fields[fieldSuccessCount]); err != nil {
		return nil, err
	}
	if r.FailureCount, err = parseCounter(fields[fieldFailureCount]); err != nil {
		return nil, err
	}
	if r.LastExecuted, err = parseOptionalTime(fields[fieldLastExecuted]); err != nil {
		return nil, err
	}
	if r.NextExecution, err = parseOptionalTime(fields[fieldNextExecution]); err != nil {
		return nil, err
	}

	updated, err := parseOptionalTime(fields[fieldUpdatedAt])
	if err != nil {
		return nil, err
	}
	if updated != nil {
		r.UpdatedAt = *updated
	}

	return r, nil
}

func parseCounter(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("automaton/redis: parse counter %q: %w", s, err)
	}
	return n, nil
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: parse time %q: %w", s, err)
	}
	return &t, nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// executionRecord is the msgpack shape of one execution. Records are
// terminal when appended, so the whole value is a single blob.
type executionRecord struct {
	ID          string           `msgpack:"id"`
	RuleID      string           `msgpack:"rule_id"`
	State       string           `msgpack:"state"`
	StartedAt   time.Time        `msgpack:"started_at"`
	CompletedAt *time.Time       `msgpack:"completed_at,omitempty"`
	Error       string           `msgpack:"error,omitempty"`
	Context     map[string]any   `msgpack:"context,omitempty"`
	Results     []action.Outcome `msgpack:"results,omitempty"`
}

func encodeExecution(e *execution.Execution) ([]byte, error) {
	blob, err := msgpack.Marshal(&executionRecord{
		ID:          e.ID.String(),
		RuleID:      e.RuleID.String(),
		State:       string(e.State),
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		Error:       e.Error,
		Context:     e.Context,
		Results:     e.Results,
	})
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: encode execution: %w", err)
	}
	return blob, nil
}

func decodeExecution(blob []byte) (*execution.Execution, error) {
	var rec executionRecord
	if err := msgpack.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("automaton/redis: decode execution: %w", err)
	}

	execID, err := id.ParseExecutionID(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: execution id: %w", err)
	}
	ruleID, err := id.ParseRuleID(rec.RuleID)
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: execution rule id: %w", err)
	}

	return &execution.Execution{
		ID:          execID,
		RuleID:      ruleID,
		State:       execution.State(rec.State),
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
		Error:       rec.Error,
		Context:     rec.Context,
		Results:     rec.Results,
	}, nil
}
