package condition

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// celCostLimit caps expression evaluation cost to prevent resource
// exhaustion from runaway expressions.
const celCostLimit = 1_000_000

// CELPredicate compiles a CEL expression into a Predicate, giving the
// "custom" operator real business logic. The expression sees two dynamic
// variables: "observed" (the context field value) and "expected" (the
// condition's value), and must evaluate to a boolean.
//
//	pred, err := condition.CELPredicate(`observed > expected * 1.5`)
//	registry.Register(condition.OpCustom, pred)
//
// Evaluation errors and non-boolean results fail closed.
func CELPredicate(expr string) (Predicate, error) {
	env, err := cel.NewEnv(
		cel.Variable("observed", cel.DynType),
		cel.Variable("expected", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("condition: create cel environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("condition: compile %q: %w", expr, issues.Err())
	}

	prog, err := env.Program(ast, cel.CostLimit(celCostLimit))
	if err != nil {
		return nil, fmt.Errorf("condition: program %q: %w", expr, err)
	}

	return func(observed, expected any) bool {
		out, _, err := prog.Eval(map[string]any{
			"observed": observed,
			"expected": expected,
		})
		if err != nil {
			return false
		}
		b, ok := out.Value().(bool)
		return ok && b
	}, nil
}
