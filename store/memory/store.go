// Package memory provides an in-memory store implementation. It is the
// default for tests and embedded usage; state is lost on process exit.
//
// All methods are safe for concurrent use. Rules and executions are
// cloned at the boundary so callers never share memory with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// Store implements rule.Store and execution.Store with mutex-guarded maps.
type Store struct {
	mu    sync.RWMutex
	rules map[string]*rule.Rule

	executions map[string]*execution.Execution
	// order holds execution IDs in append order for newest-first listing.
	order []string

	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used to touch UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		rules:      make(map[string]*rule.Rule),
		executions: make(map[string]*execution.Execution),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ──────────────────────────────────────────────────
// rule.Store
// ──────────────────────────────────────────────────

// CreateRule persists a new rule.
func (s *Store) CreateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.ID.String()
	if _, exists := s.rules[key]; exists {
		return automaton.ErrRuleAlreadyExists
	}
	s.rules[key] = r.Clone()
	return nil
}

// GetRule retrieves a rule by ID.
func (s *Store) GetRule(_ context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[ruleID.String()]
	if !ok {
		return nil, automaton.ErrRuleNotFound
	}
	return r.Clone(), nil
}

// UpdateRule applies a partial update and touches UpdatedAt.
func (s *Store) UpdateRule(_ context.Context, ruleID id.RuleID, u rule.Update) (*rule.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[ruleID.String()]
	if !ok {
		return nil, automaton.ErrRuleNotFound
	}
	u.Apply(r)
	r.UpdatedAt = s.now()
	return r.Clone(), nil
}

// DeleteRule removes a rule by ID.
func (s *Store) DeleteRule(_ context.Context, ruleID id.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ruleID.String()
	if _, ok := s.rules[key]; !ok {
		return automaton.ErrRuleNotFound
	}
	delete(s.rules, key)
	return nil
}

// ListRules returns matching rules ordered by priority (descending) then
// creation time.
func (s *Store) ListRules(_ context.Context, f rule.Filter) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*rule.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if f.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// RecordResult atomically applies an invocation result to the rule's
// counters.
func (s *Store) RecordResult(_ context.Context, ruleID id.RuleID, res rule.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[ruleID.String()]
	if !ok {
		return automaton.ErrRuleNotFound
	}

	r.ExecutionCount++
	if res.Failed {
		r.FailureCount++
	} else {
		r.SuccessCount++
		at := res.At
		r.LastExecuted = &at
	}
	r.UpdatedAt = s.now()
	return nil
}

// SetNextExecution records when the scheduler will next fire the rule.
func (s *Store) SetNextExecution(_ context.Context, ruleID id.RuleID, next *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[ruleID.String()]
	if !ok {
		return automaton.ErrRuleNotFound
	}
	if next != nil {
		ts := *next
		r.NextExecution = &ts
	} else {
		r.NextExecution = nil
	}
	return nil
}

// ──────────────────────────────────────────────────
// execution.Store
// ──────────────────────────────────────────────────

// AppendExecution records a terminal execution. Re-appending the same ID
// overwrites the record; the failure path rewrites an execution it
// already appended.
func (s *Store) AppendExecution(_ context.Context, e *execution.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.ID.String()
	if _, exists := s.executions[key]; !exists {
		s.order = append(s.order, key)
	}
	s.executions[key] = e.Clone()
	return nil
}

// GetExecution retrieves an execution by ID.
func (s *Store) GetExecution(_ context.Context, execID id.ExecutionID) (*execution.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.executions[execID.String()]
	if !ok {
		return nil, automaton.ErrExecutionNotFound
	}
	return e.Clone(), nil
}

// ListExecutions returns executions newest first.
func (s *Store) ListExecutions(_ context.Context, opts execution.ListOpts) ([]*execution.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*execution.Execution
	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.executions[s.order[i]]
		if !opts.RuleID.IsNil() && e.RuleID.String() != opts.RuleID.String() {
			continue
		}
		out = append(out, e.Clone())
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}
