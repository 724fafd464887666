package automaton

import "time"

// Config holds engine-level configuration.
type Config struct {
	// Concurrency caps how many rule invocations may run at once through
	// the worker pool. It does not parallelize actions within a single
	// invocation; actions always run sequentially.
	Concurrency int

	// QueueDepth is the capacity of the asynchronous invocation queue.
	QueueDepth int

	// ActionTimeout bounds each action handler with a context deadline.
	// A timeout is an isolated action failure, not an invocation failure.
	// Zero disables the deadline.
	ActionTimeout time.Duration

	// TickInterval is how often the scheduler checks for due rules.
	TickInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     10,
		QueueDepth:      256,
		ActionTimeout:   1 * time.Minute,
		TickInterval:    1 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}
