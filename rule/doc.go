// Package rule defines the automation rule entity and its persistence
// contract.
//
// # Rule Entity
//
// A [Rule] pairs declarative [Condition] specs with ordered [Action] specs
// under a [Trigger]. Rules carry execution counters that only the store
// mutates, keeping concurrent invocations increment-safe.
//
// Rule definition state ([State]) is intentionally separate from execution
// state: Active/Inactive/Paused describe the definition, never a run.
package rule
