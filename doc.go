// Package automaton provides a composable, registry-driven business
// automation engine for Go. Rules pair declarative conditions with ordered
// side-effecting actions; an orchestrator evaluates conditions against a
// caller-supplied context, dispatches actions through injected
// collaborators, and records every invocation as an immutable execution.
//
// Automaton is designed as a library, not a service. Import it, configure a
// store, register collaborators, and execute rules from your own transport.
//
// # Quick Start
//
//	eng, err := engine.New(memory.New(),
//	    engine.WithCollaborators(action.Collaborators{Mailer: mailer}),
//	)
//
// # Architecture
//
// Automaton follows a composable store pattern: the rule and execution
// subsystems each define their own store interface and a single backend
// implements both (memory, Bun/Postgres, Redis). Condition operators and
// action types are typed registries populated at startup, so new operators
// and handlers can be added without touching stored rules.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package automaton
