package automaton

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("automaton: no store configured")
	ErrStoreClosed     = errors.New("automaton: store closed")
	ErrMigrationFailed = errors.New("automaton: migration failed")

	// Not found errors.
	ErrRuleNotFound      = errors.New("automaton: rule not found")
	ErrExecutionNotFound = errors.New("automaton: execution not found")

	// Conflict errors.
	ErrRuleAlreadyExists = errors.New("automaton: rule already exists")

	// State errors.
	ErrInvalidState = errors.New("automaton: invalid state transition")

	// Pool errors.
	ErrPoolStopped = errors.New("automaton: worker pool stopped")
	ErrQueueFull   = errors.New("automaton: invocation queue full")

	// Schedule errors.
	ErrBadSchedule = errors.New("automaton: invalid cron schedule")
)
