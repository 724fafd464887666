package rule

import (
	"context"
	"time"

	"github.com/automatonhq/automaton/id"
)

// Update carries a partial rule update. Nil fields are left untouched.
// Only the fields listed here may be changed after creation; counters and
// timestamps are owned by the store.
type Update struct {
	Name        *string
	Description *string
	Trigger     *Trigger
	Event       *string
	Schedule    *string
	Conditions  *[]Condition
	Actions     *[]Action
	State       *State
	Priority    *int
	Metadata    *map[string]any
}

// Apply copies the non-nil fields of the update onto the rule.
func (u Update) Apply(r *Rule) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Trigger != nil {
		r.Trigger = *u.Trigger
	}
	if u.Event != nil {
		r.Event = *u.Event
	}
	if u.Schedule != nil {
		r.Schedule = *u.Schedule
	}
	if u.Conditions != nil {
		r.Conditions = *u.Conditions
	}
	if u.Actions != nil {
		r.Actions = *u.Actions
	}
	if u.State != nil {
		r.State = *u.State
	}
	if u.Priority != nil {
		r.Priority = *u.Priority
	}
	if u.Metadata != nil {
		r.Metadata = *u.Metadata
	}
}

// Result describes the outcome of one rule invocation for counter
// bookkeeping. Failed marks the system-error path; skipped invocations
// never reach RecordResult.
type Result struct {
	// At is the invocation completion time; becomes LastExecuted on the
	// success path.
	At time.Time
	// Failed indicates the invocation aborted with a system error.
	Failed bool
}

// Filter narrows ListRules queries. Zero values match everything.
type Filter struct {
	State   State
	Trigger Trigger
}

// Store defines the persistence contract for rules.
//
// Counter updates go through RecordResult so that concurrent invocations
// of the same rule never lose increments: each backend implements it with
// its native atomic primitive (mutex, SQL arithmetic, HIncrBy).
type Store interface {
	// CreateRule persists a new rule.
	CreateRule(ctx context.Context, r *Rule) error

	// GetRule retrieves a rule by ID.
	GetRule(ctx context.Context, ruleID id.RuleID) (*Rule, error)

	// UpdateRule applies a partial update and touches UpdatedAt.
	// Returns the updated rule.
	UpdateRule(ctx context.Context, ruleID id.RuleID, u Update) (*Rule, error)

	// DeleteRule removes a rule by ID.
	DeleteRule(ctx context.Context, ruleID id.RuleID) error

	// ListRules returns rules matching the filter, ordered by priority
	// (descending) then creation time.
	ListRules(ctx context.Context, f Filter) ([]*Rule, error)

	// RecordResult atomically applies an invocation result to the rule's
	// counters: success increments ExecutionCount and SuccessCount and
	// sets LastExecuted; failure increments ExecutionCount and
	// FailureCount.
	RecordResult(ctx context.Context, ruleID id.RuleID, res Result) error

	// SetNextExecution records when the scheduler will next fire the rule.
	SetNextExecution(ctx context.Context, ruleID id.RuleID, next *time.Time) error
}

// Matches reports whether the rule satisfies the filter.
func (f Filter) Matches(r *Rule) bool {
	if f.State != "" && r.State != f.State {
		return false
	}
	if f.Trigger != "" && r.Trigger != f.Trigger {
		return false
	}
	return true
}
