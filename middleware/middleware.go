// Package middleware provides composable middleware for action dispatch.
// Middleware wraps individual action handler calls synchronously and can
// modify execution (recover from panics, enforce deadlines, log, add
// tracing and metrics).
package middleware

import (
	"context"
	"time"

	"github.com/automatonhq/automaton/id"
)

// Invocation carries the identity of one action dispatch through the
// middleware chain.
type Invocation struct {
	RuleID     id.RuleID
	RuleName   string
	ActionType string

	// Timeout bounds the handler call. Zero disables the deadline.
	Timeout time.Duration
}

// Handler is the terminal function that dispatches the action.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the invocation being dispatched, and the next handler
// to call. Middleware MUST call next to continue the chain (unless
// short-circuiting on error).
type Middleware func(ctx context.Context, inv *Invocation, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, inv, prev)
			}
		}
		return h(ctx)
	}
}
