package rule

import (
	"time"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/id"
)

// State represents the definition lifecycle of a rule. It is deliberately
// distinct from execution.State: a stored rule can never be "running".
type State string

const (
	// StateActive means the rule is eligible for execution.
	StateActive State = "active"
	// StateInactive means the rule is disabled.
	StateInactive State = "inactive"
	// StatePaused means the rule is temporarily suspended.
	StatePaused State = "paused"
)

// Trigger describes what external stimulus may invoke a rule. The engine
// itself is trigger-agnostic; the caller (or the scheduler / event bus)
// decides when to invoke.
type Trigger string

const (
	// TriggerScheduled rules fire on a cron schedule via the scheduler.
	TriggerScheduled Trigger = "scheduled"
	// TriggerEvent rules fire when a matching business event is published.
	TriggerEvent Trigger = "event"
	// TriggerCondition rules fire when a caller-observed condition changes.
	TriggerCondition Trigger = "condition"
	// TriggerManual rules fire only on explicit caller request.
	TriggerManual Trigger = "manual"
	// TriggerAPICall rules fire from an external API integration.
	TriggerAPICall Trigger = "api_call"
)

// Condition is a single predicate {field, operator, value} evaluated
// against a context map. A rule's conditions form a logical AND; order is
// irrelevant to the result but fixed for reproducible short-circuiting.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

// Action is a single side-effecting step {type, config} dispatched to a
// registered handler. Order is significant: actions execute sequentially
// within one invocation.
type Action struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// Rule is a stored automation definition: a trigger, conditions, and
// ordered actions, plus execution counters maintained by the store.
//
// Condition and action shapes are not validated at definition time;
// unknown operators and action types fail closed at execution time. This
// keeps stored rules forward-compatible with operators and handlers that
// are registered later.
type Rule struct {
	automaton.Entity

	ID          id.RuleID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Trigger     Trigger     `json:"trigger"`
	Event       string      `json:"event,omitempty"`
	Schedule    string      `json:"schedule,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty"`
	Actions     []Action    `json:"actions,omitempty"`
	State       State       `json:"state"`
	Priority    int         `json:"priority"`

	// Counters are mutated only through Store.RecordResult so each
	// backend can use its native atomic primitive.
	ExecutionCount int64      `json:"execution_count"`
	SuccessCount   int64      `json:"success_count"`
	FailureCount   int64      `json:"failure_count"`
	LastExecuted   *time.Time `json:"last_executed,omitempty"`
	NextExecution  *time.Time `json:"next_execution,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Spec describes a rule to be created. ID, state, counters, and
// timestamps are allocated by New.
type Spec struct {
	Name        string
	Description string
	Trigger     Trigger
	Event       string
	Schedule    string
	Conditions  []Condition
	Actions     []Action
	Priority    int
	Metadata    map[string]any
}

// New constructs a Rule from a Spec. The rule is created Active with a
// fresh ID and zeroed counters. Trigger defaults to manual.
func New(spec Spec, now time.Time) *Rule {
	trigger := spec.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}

	return &Rule{
		Entity: automaton.Entity{
			CreatedAt: now,
			UpdatedAt: now,
		},
		ID:          id.NewRuleID(),
		Name:        spec.Name,
		Description: spec.Description,
		Trigger:     trigger,
		Event:       spec.Event,
		Schedule:    spec.Schedule,
		Conditions:  spec.Conditions,
		Actions:     spec.Actions,
		State:       StateActive,
		Priority:    spec.Priority,
		Metadata:    spec.Metadata,
	}
}

// Clone returns a deep copy of the rule. Stores return clones so callers
// can mutate results without racing with the store.
func (r *Rule) Clone() *Rule {
	cp := *r

	if r.Conditions != nil {
		cp.Conditions = make([]Condition, len(r.Conditions))
		copy(cp.Conditions, r.Conditions)
	}
	if r.Actions != nil {
		cp.Actions = make([]Action, len(r.Actions))
		for i, a := range r.Actions {
			cp.Actions[i] = Action{Type: a.Type, Config: cloneMap(a.Config)}
		}
	}
	cp.Metadata = cloneMap(r.Metadata)

	if r.LastExecuted != nil {
		ts := *r.LastExecuted
		cp.LastExecuted = &ts
	}
	if r.NextExecution != nil {
		ts := *r.NextExecution
		cp.NextExecution = &ts
	}

	return &cp
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
