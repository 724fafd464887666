package action

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/automatonhq/automaton/rule"
)

// Handler performs one action given its config and the invocation context.
// On failure it must return an error, never swallow it; the registry
// converts errors into failed Outcomes.
type Handler func(ctx context.Context, config map[string]any, execCtx map[string]any) (any, error)

// Registry maps action types to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source used to stamp outcomes.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty action registry.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs or replaces the handler for an action type.
func (r *Registry) Register(typ string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[typ] = h
}

// Get returns the handler for the given action type.
func (r *Registry) Get(typ string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[typ]
	return h, ok
}

// Types returns all registered action types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for typ := range r.handlers {
		types = append(types, typ)
	}
	return types
}

// Execute dispatches a single action spec and wraps the result into an
// Outcome. An unknown type and a handler error both yield a failed
// Outcome; Execute itself never returns an error.
func (r *Registry) Execute(ctx context.Context, act rule.Action, execCtx map[string]any) Outcome {
	h, ok := r.Get(act.Type)
	if !ok {
		r.logger.Warn("unknown action type", slog.String("type", act.Type))
		return Outcome{
			Type:      act.Type,
			Status:    StatusFailed,
			Error:     "unknown action type",
			Timestamp: r.now(),
		}
	}

	result, err := h(ctx, act.Config, execCtx)
	if err != nil {
		return Outcome{
			Type:      act.Type,
			Status:    StatusFailed,
			Error:     err.Error(),
			Timestamp: r.now(),
		}
	}

	return Outcome{
		Type:      act.Type,
		Status:    StatusSuccess,
		Result:    result,
		Timestamp: r.now(),
	}
}
