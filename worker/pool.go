// Package worker provides the bounded goroutine pool that runs rule
// invocations. Triggers (schedule ticks, business events, direct API
// calls) submit work; the pool bounds concurrency and drains gracefully
// on shutdown.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/automatonhq/automaton"
)

// Task is one unit of work, typically a bound rule invocation.
type Task func(ctx context.Context)

// Pool manages a fixed set of worker goroutines fed from a bounded
// queue. Submit never blocks: a full queue is reported to the caller so
// triggers can decide whether to drop or retry.
type Pool struct {
	concurrency int
	queue       chan Task
	logger      *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	stopped bool

	active   map[int]context.CancelFunc
	activeMu sync.Mutex
}

// Option configures a Pool.
type Option func(*Pool)

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithQueueDepth sets the capacity of the submission queue.
func WithQueueDepth(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queue = make(chan Task, n)
		}
	}
}

// WithLogger sets the pool's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// NewPool creates a worker pool. Defaults match automaton.DefaultConfig.
func NewPool(opts ...Option) *Pool {
	cfg := automaton.DefaultConfig()
	p := &Pool{
		concurrency: cfg.Concurrency,
		queue:       make(chan Task, cfg.QueueDepth),
		logger:      slog.Default(),
		stopCh:      make(chan struct{}),
		active:      make(map[int]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker goroutines. It returns immediately and is
// idempotent.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if p.stopped {
		return automaton.ErrPoolStopped
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.Int("concurrency", p.concurrency),
		slog.Int("queue_depth", cap(p.queue)),
	)

	for i := range p.concurrency {
		p.wg.Add(1)
		go p.runLoop(i)
	}

	return nil
}

// Submit enqueues a task for execution. It returns ErrPoolStopped after
// Stop has been called and ErrQueueFull when the queue has no capacity.
// The send happens under the mutex: Stop sets stopped under the same
// lock before closing the queue, so a send can never race the close.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return automaton.ErrPoolStopped
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return automaton.ErrQueueFull
	}
}

// Stop drains the queue and waits for workers to finish. If the context
// expires first, tasks still running are cancelled through their
// contexts.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running || p.stopped {
		p.stopped = true
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.stopped = true
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.Int("queued", len(p.queue)))

	// Workers exit once the queue is drained.
	close(p.queue)
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active tasks")
		p.cancelActive()
		p.wg.Wait()
	}

	return nil
}

func (p *Pool) runLoop(worker int) {
	defer p.wg.Done()

	for task := range p.queue {
		ctx, cancel := context.WithCancel(context.Background())
		p.track(worker, cancel)
		task(ctx)
		p.untrack(worker)
		cancel()
	}
}

func (p *Pool) track(worker int, cancel context.CancelFunc) {
	p.activeMu.Lock()
	p.active[worker] = cancel
	p.activeMu.Unlock()
}

func (p *Pool) untrack(worker int) {
	p.activeMu.Lock()
	delete(p.active, worker)
	p.activeMu.Unlock()
}

func (p *Pool) cancelActive() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for worker, cancel := range p.active {
		p.logger.Warn("cancelling active task", slog.Int("worker", worker))
		cancel()
	}
}
