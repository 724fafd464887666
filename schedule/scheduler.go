// Package schedule fires rules with the scheduled trigger on a cron
// cadence. The scheduler polls the rule store on a tick interval,
// submits due rules for execution, and advances each rule's next
// execution time.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/backoff"
	"github.com/automatonhq/automaton/hook"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// SubmitFunc is the callback the scheduler uses to submit due rules for
// execution. The engine provides the implementation; this breaks the
// import cycle.
type SubmitFunc func(ctx context.Context, ruleID id.RuleID, execCtx map[string]any) error

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression. Failures wrap ErrBadSchedule
// so callers can reject invalid rule definitions at creation time.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", automaton.ErrBadSchedule, expr, err)
	}
	return sched, nil
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due rules.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithBackoff sets the delay strategy applied after consecutive store
// failures. Defaults to backoff.DefaultStrategy.
func WithBackoff(b backoff.Strategy) Option {
	return func(s *Scheduler) { s.bo = b }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler runs scheduled rules on a tick loop.
type Scheduler struct {
	rules  rule.Store
	submit SubmitFunc
	hooks  *hook.Registry
	logger *slog.Logger

	tickInterval time.Duration
	bo           backoff.Strategy
	now          func() time.Time

	// parsed caches parsed cron expressions.
	parsedMu sync.RWMutex
	parsed   map[string]cronlib.Schedule

	// failures counts consecutive store errors; only the tick goroutine
	// touches it.
	failures int

	stopCh  chan struct{}
	wg      sync.WaitGroup
	stopMu  sync.Mutex
	stopped bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(rules rule.Store, submit SubmitFunc, hooks *hook.Registry, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		rules:        rules,
		submit:       submit,
		hooks:        hooks,
		logger:       logger,
		tickInterval: 1 * time.Second,
		bo:           backoff.DefaultStrategy(),
		now:          func() time.Time { return time.Now().UTC() },
		parsed:       make(map[string]cronlib.Schedule),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("scheduler started",
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop signals the scheduler to stop and waits for the tick goroutine.
// It is idempotent.
func (s *Scheduler) Stop(_ context.Context) error {
	s.stopMu.Lock()
	if s.stopped {
		s.stopMu.Unlock()
		return nil
	}
	s.stopped = true
	s.stopMu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case <-time.After(s.interval()):
			s.tick()
		}
	}
}

// interval backs off after consecutive store failures so a struggling
// backend is not hammered once per tick.
func (s *Scheduler) interval() time.Duration {
	if s.failures > 0 {
		return s.bo.Delay(s.failures)
	}
	return s.tickInterval
}

func (s *Scheduler) tick() {
	ctx := context.Background()

	rules, err := s.rules.ListRules(ctx, rule.Filter{
		State:   rule.StateActive,
		Trigger: rule.TriggerScheduled,
	})
	if err != nil {
		s.failures++
		s.logger.Error("list scheduled rules error",
			slog.String("error", err.Error()),
			slog.Int("consecutive_failures", s.failures),
		)
		return
	}
	s.failures = 0

	now := s.now()
	for _, r := range rules {
		if r.Schedule == "" {
			continue
		}
		sched, parseErr := s.getOrParseSchedule(r.Schedule)
		if parseErr != nil {
			s.logger.Error("parse rule schedule error",
				slog.String("rule_id", r.ID.String()),
				slog.String("schedule", r.Schedule),
				slog.String("error", parseErr.Error()),
			)
			continue
		}

		// First sighting: anchor the next execution without firing.
		if r.NextExecution == nil {
			s.advance(ctx, r, sched, now)
			continue
		}
		if r.NextExecution.After(now) {
			continue
		}

		s.fire(ctx, r, now)
		s.advance(ctx, r, sched, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, r *rule.Rule, now time.Time) {
	execCtx := map[string]any{
		"trigger":      string(rule.TriggerScheduled),
		"scheduled_at": now,
	}
	if err := s.submit(ctx, r.ID, execCtx); err != nil {
		s.logger.Error("scheduled rule submit error",
			slog.String("rule_id", r.ID.String()),
			slog.String("rule_name", r.Name),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.hooks != nil {
		s.hooks.EmitScheduleFired(ctx, r, now)
	}

	s.logger.Info("scheduled rule fired",
		slog.String("rule_id", r.ID.String()),
		slog.String("rule_name", r.Name),
	)
}

func (s *Scheduler) advance(ctx context.Context, r *rule.Rule, sched cronlib.Schedule, now time.Time) {
	next := sched.Next(now)
	if err := s.rules.SetNextExecution(ctx, r.ID, &next); err != nil {
		s.logger.Error("set next execution error",
			slog.String("rule_id", r.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// getOrParseSchedule caches parsed cron expressions.
func (s *Scheduler) getOrParseSchedule(expr string) (cronlib.Schedule, error) {
	s.parsedMu.RLock()
	sched, ok := s.parsed[expr]
	s.parsedMu.RUnlock()
	if ok {
		return sched, nil
	}

	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	s.parsedMu.Lock()
	s.parsed[expr] = sched
	s.parsedMu.Unlock()
	return sched, nil
}
