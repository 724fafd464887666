// Package engine wires all automaton subsystems together: the rule and
// execution stores, the condition and action registries, the middleware
// chain, the worker pool, the scheduler, and the event bus.
//
// This package exists to break the import cycle: the root automaton
// package defines Entity and Config (imported by rule, execution, etc.)
// and so cannot import those packages back. The engine package sits
// above all subsystem packages and below the application layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/action"
	"github.com/automatonhq/automaton/condition"
	"github.com/automatonhq/automaton/event"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/hook"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/insight"
	mw "github.com/automatonhq/automaton/middleware"
	"github.com/automatonhq/automaton/recommend"
	"github.com/automatonhq/automaton/rule"
	"github.com/automatonhq/automaton/schedule"
	"github.com/automatonhq/automaton/worker"
)

// Store is the composite persistence contract the engine requires: rule
// definitions plus execution history. The memory, bun, and redis
// backends all satisfy it.
type Store interface {
	rule.Store
	execution.Store
}

// Engine is the orchestrator: it owns the registries, dispatches rule
// invocations, and runs the trigger subsystems. Construct one at process
// start with New and pass it explicitly; there is no package-level
// singleton.
type Engine struct {
	store  Store
	cfg    automaton.Config
	logger *slog.Logger
	now    func() time.Time

	conditions *condition.Registry
	actions    *action.Registry
	hooks      *hook.Registry
	exts       []hook.Extension

	collaborators action.Collaborators
	mws           []mw.Middleware
	chain         mw.Middleware

	pool      *worker.Pool
	scheduler *schedule.Scheduler
	bus       *event.Bus
	analyzer  *insight.Analyzer
	generator *recommend.Generator

	schedulerOpts []schedule.Option

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConfig overrides the default engine configuration.
func WithConfig(cfg automaton.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock sets the time source. Tests inject a fixed clock here.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithExtension registers a lifecycle extension with the engine.
func WithExtension(ext hook.Extension) Option {
	return func(e *Engine) { e.exts = append(e.exts, ext) }
}

// WithMiddleware appends middleware to the action dispatch chain, after
// the defaults.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m) }
}

// WithCollaborators injects the external side-effect collaborators the
// built-in action handlers delegate to.
func WithCollaborators(c action.Collaborators) Option {
	return func(e *Engine) { e.collaborators = c }
}

// WithConditionRegistry replaces the default condition registry.
func WithConditionRegistry(r *condition.Registry) Option {
	return func(e *Engine) { e.conditions = r }
}

// WithActionRegistry replaces the default action registry. Built-in
// handlers are not installed on a caller-provided registry.
func WithActionRegistry(r *action.Registry) Option {
	return func(e *Engine) { e.actions = r }
}

// WithAnalyzer replaces the default process efficiency analyzer.
func WithAnalyzer(a *insight.Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// WithGenerator replaces the default recommendation generator.
func WithGenerator(g *recommend.Generator) Option {
	return func(e *Engine) { e.generator = g }
}

// WithSchedulerOptions forwards options to the scheduler.
func WithSchedulerOptions(opts ...schedule.Option) Option {
	return func(e *Engine) { e.schedulerOpts = append(e.schedulerOpts, opts...) }
}

// WithTracerProvider sets a custom OTel TracerProvider. When set, the
// tracing middleware uses this provider instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider. When set, the
// metrics middleware uses this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// New creates an Engine over the given store.
func New(store Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, automaton.ErrNoStore
	}

	e := &Engine{
		store:  store,
		cfg:    automaton.DefaultConfig(),
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}

	e.hooks = hook.NewRegistry(e.logger)
	for _, ext := range e.exts {
		e.hooks.Register(ext)
	}

	if e.conditions == nil {
		e.conditions = condition.NewRegistry(e.logger)
	}
	if e.actions == nil {
		e.actions = action.NewRegistry(e.logger, action.WithClock(e.now))
		action.RegisterBuiltins(e.actions, e.collaborators)
	}
	if e.analyzer == nil {
		e.analyzer = insight.NewAnalyzer(insight.WithLogger(e.logger), insight.WithClock(e.now))
	}
	if e.generator == nil {
		e.generator = recommend.NewGenerator(recommend.WithLogger(e.logger), recommend.WithClock(e.now))
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if e.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(e.tracerProvider.Tracer("github.com/automatonhq/automaton"))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if e.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(e.meterProvider.Meter("github.com/automatonhq/automaton"))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default dispatch stack: recover → tracing → metrics → logging → timeout.
	all := []mw.Middleware{
		mw.Recover(e.logger),
		tracingMw,
		metricsMw,
		mw.Logging(e.logger),
		mw.Timeout(e.logger),
	}
	all = append(all, e.mws...)
	e.chain = mw.Chain(all...)

	e.pool = worker.NewPool(
		worker.WithConcurrency(e.cfg.Concurrency),
		worker.WithQueueDepth(e.cfg.QueueDepth),
		worker.WithLogger(e.logger),
	)

	submit := func(ctx context.Context, ruleID id.RuleID, execCtx map[string]any) error {
		return e.SubmitRule(ctx, ruleID, execCtx)
	}

	schedOpts := append([]schedule.Option{
		schedule.WithTickInterval(e.cfg.TickInterval),
		schedule.WithClock(e.now),
	}, e.schedulerOpts...)
	e.scheduler = schedule.NewScheduler(store, submit, e.hooks, e.logger, schedOpts...)
	e.bus = event.NewBus(store, submit, e.hooks, e.logger)

	return e, nil
}

// Start launches the worker pool and the scheduler.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.pool.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	if err := e.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	e.logger.Info("engine started",
		slog.Int("concurrency", e.cfg.Concurrency),
	)
	return nil
}

// Stop gracefully shuts the engine down: the scheduler stops first so no
// new invocations are submitted, then the pool drains. If the context
// has no deadline, ShutdownTimeout applies.
func (e *Engine) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && e.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := e.scheduler.Stop(ctx); err != nil {
		e.logger.Error("scheduler stop error", slog.String("error", err.Error()))
	}
	if err := e.pool.Stop(ctx); err != nil {
		e.logger.Error("worker pool stop error", slog.String("error", err.Error()))
	}

	e.hooks.EmitShutdown(ctx)
	e.logger.Info("engine stopped")
	return nil
}

// ──────────────────────────────────────────────────
// Rule management
// ──────────────────────────────────────────────────

// CreateRule validates a spec and persists a new rule. Scheduled rules
// must carry a parseable cron schedule.
func (e *Engine) CreateRule(ctx context.Context, spec rule.Spec) (*rule.Rule, error) {
	r := rule.New(spec, e.now())

	if r.Trigger == rule.TriggerScheduled {
		sched, err := schedule.ParseSchedule(r.Schedule)
		if err != nil {
			return nil, err
		}
		next := sched.Next(e.now())
		r.NextExecution = &next
	}

	if err := e.store.CreateRule(ctx, r); err != nil {
		return nil, err
	}

	e.logger.Info("rule created",
		slog.String("rule_id", r.ID.String()),
		slog.String("rule_name", r.Name),
		slog.String("trigger", string(r.Trigger)),
	)
	return r, nil
}

// GetRule retrieves a rule by ID.
func (e *Engine) GetRule(ctx context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	return e.store.GetRule(ctx, ruleID)
}

// UpdateRule applies a partial update. A state change must name a known
// state; a schedule change must parse.
func (e *Engine) UpdateRule(ctx context.Context, ruleID id.RuleID, u rule.Update) (*rule.Rule, error) {
	if u.State != nil {
		switch *u.State {
		case rule.StateActive, rule.StateInactive, rule.StatePaused:
		default:
			return nil, fmt.Errorf("%w: %q", automaton.ErrInvalidState, *u.State)
		}
	}
	if u.Schedule != nil && *u.Schedule != "" {
		if _, err := schedule.ParseSchedule(*u.Schedule); err != nil {
			return nil, err
		}
	}
	return e.store.UpdateRule(ctx, ruleID, u)
}

// DeleteRule removes a rule.
func (e *Engine) DeleteRule(ctx context.Context, ruleID id.RuleID) error {
	return e.store.DeleteRule(ctx, ruleID)
}

// ListRules returns rules matching the filter, priority first.
func (e *Engine) ListRules(ctx context.Context, f rule.Filter) ([]*rule.Rule, error) {
	return e.store.ListRules(ctx, f)
}

// ──────────────────────────────────────────────────
// History
// ──────────────────────────────────────────────────

// GetExecution retrieves one execution record.
func (e *Engine) GetExecution(ctx context.Context, execID id.ExecutionID) (*execution.Execution, error) {
	return e.store.GetExecution(ctx, execID)
}

// ListExecutions returns execution history, newest first.
func (e *Engine) ListExecutions(ctx context.Context, opts execution.ListOpts) ([]*execution.Execution, error) {
	return e.store.ListExecutions(ctx, opts)
}

// ──────────────────────────────────────────────────
// Analysis
// ──────────────────────────────────────────────────

// AnalyzeProcessEfficiency computes bottlenecks, an efficiency score,
// and savings estimates for a process description.
func (e *Engine) AnalyzeProcessEfficiency(p insight.Process) insight.Insight {
	return e.analyzer.Analyze(p)
}

// GetRecommendations runs the suggestion heuristics over a business data
// snapshot.
func (e *Engine) GetRecommendations(snapshot map[string]any) []recommend.Suggestion {
	return e.generator.Generate(snapshot)
}

// ──────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────

// Conditions returns the condition registry, for registering operators.
func (e *Engine) Conditions() *condition.Registry { return e.conditions }

// Actions returns the action registry, for registering handlers.
func (e *Engine) Actions() *action.Registry { return e.actions }

// Hooks returns the extension registry.
func (e *Engine) Hooks() *hook.Registry { return e.hooks }

// Events returns the business event bus.
func (e *Engine) Events() *event.Bus { return e.bus }

// Scheduler returns the cron scheduler.
func (e *Engine) Scheduler() *schedule.Scheduler { return e.scheduler }

// Store returns the underlying store.
func (e *Engine) Store() Store { return e.store }
