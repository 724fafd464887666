// Package condition provides the condition evaluator registry: a typed
// mapping from operator name to a two-argument predicate over
// (observed, expected) values.
//
// Every ambiguity fails closed: a missing context field, an unknown
// operator, or a coercion failure resolves to false rather than raising.
// EvaluateConditions is a pure short-circuiting AND with no side effects
// beyond logging.
package condition

import (
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"github.com/automatonhq/automaton/rule"
)

// Operator names a condition predicate.
type Operator string

// Built-in operators.
const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
	OpDateRange   Operator = "date_range"
	OpCustom      Operator = "custom"
)

// Predicate tests an observed context value against the expected value
// from a condition spec. Predicates must never panic; coercion failures
// return false.
type Predicate func(observed, expected any) bool

// Registry maps operators to predicates. It is safe for concurrent use.
// NewRegistry installs the built-in operators; callers may register
// additional operators (or replace the "custom" stub) before execution.
type Registry struct {
	mu         sync.RWMutex
	predicates map[Operator]Predicate
	logger     *slog.Logger
}

// NewRegistry creates a registry with all built-in operators installed.
// The "custom" operator defaults to an always-true stub; production
// deployments should replace it via Register, for example with a
// CEL-backed predicate from CELPredicate.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		predicates: make(map[Operator]Predicate),
		logger:     logger,
	}

	r.Register(OpEquals, equals)
	r.Register(OpNotEquals, func(o, e any) bool { return !equals(o, e) })
	r.Register(OpGreaterThan, greaterThan)
	r.Register(OpLessThan, lessThan)
	r.Register(OpContains, contains)
	r.Register(OpNotContains, func(o, e any) bool { return !contains(o, e) })
	r.Register(OpIsEmpty, isEmpty)
	r.Register(OpIsNotEmpty, func(o, e any) bool { return !isEmpty(o, e) })
	r.Register(OpDateRange, dateRange)
	r.Register(OpCustom, func(_, _ any) bool { return true })

	return r
}

// Register installs or replaces the predicate for an operator.
func (r *Registry) Register(op Operator, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[op] = p
}

// Get returns the predicate for the given operator.
func (r *Registry) Get(op Operator) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predicates[op]
	return p, ok
}

// Operators returns all registered operator names.
func (r *Registry) Operators() []Operator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]Operator, 0, len(r.predicates))
	for op := range r.predicates {
		ops = append(ops, op)
	}
	return ops
}

// Evaluate applies a rule's conditions to the context as a logical AND,
// short-circuiting on the first failure. A condition whose field is
// absent from the context, or whose operator is unknown, fails closed.
// An empty condition list is vacuously true.
func (r *Registry) Evaluate(conditions []rule.Condition, context map[string]any) bool {
	for _, c := range conditions {
		observed, ok := context[c.Field]
		if !ok {
			r.logger.Debug("condition field absent from context",
				slog.String("field", c.Field),
			)
			return false
		}

		pred, ok := r.Get(Operator(c.Operator))
		if !ok {
			r.logger.Warn("unknown condition operator",
				slog.String("operator", c.Operator),
				slog.String("field", c.Field),
			)
			return false
		}

		if !pred(observed, c.Value) {
			return false
		}
	}

	return true
}

// ──────────────────────────────────────────────────
// Built-in predicates
// ──────────────────────────────────────────────────

// equals is type-sensitive: 100 != "100".
func equals(observed, expected any) bool {
	return reflect.DeepEqual(observed, expected)
}

func greaterThan(observed, expected any) bool {
	o, err := cast.ToFloat64E(observed)
	if err != nil {
		return false
	}
	e, err := cast.ToFloat64E(expected)
	if err != nil {
		return false
	}
	return o > e
}

func lessThan(observed, expected any) bool {
	o, err := cast.ToFloat64E(observed)
	if err != nil {
		return false
	}
	e, err := cast.ToFloat64E(expected)
	if err != nil {
		return false
	}
	return o < e
}

// contains is a case-insensitive substring test of expected within observed.
func contains(observed, expected any) bool {
	o, err := cast.ToStringE(observed)
	if err != nil {
		return false
	}
	e, err := cast.ToStringE(expected)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(o), strings.ToLower(e))
}

// isEmpty is true when observed is nil or, after trimming whitespace, an
// empty string. Values that cannot be rendered as strings are non-empty.
func isEmpty(observed, _ any) bool {
	if observed == nil {
		return true
	}
	s, err := cast.ToStringE(observed)
	if err != nil {
		return false
	}
	return strings.TrimSpace(s) == ""
}

// dateRange expects {start_date, end_date} and tests
// start <= observed <= end. Any parse failure yields false.
func dateRange(observed, expected any) bool {
	bounds, err := cast.ToStringMapE(expected)
	if err != nil {
		return false
	}

	o, err := cast.ToTimeE(observed)
	if err != nil {
		return false
	}
	start, err := cast.ToTimeE(bounds["start_date"])
	if err != nil {
		return false
	}
	end, err := cast.ToTimeE(bounds["end_date"])
	if err != nil {
		return false
	}

	return !o.Before(start) && !o.After(end)
}
