package redisstore

// Redis key naming conventions for automaton data.
// All keys are prefixed with "automaton:" to avoid collisions.

const keyPrefix = "automaton:"

// ── Rule keys ──

// ruleKey returns the Hash key for a rule entity: automaton:rule:{id}
func ruleKey(id string) string { return keyPrefix + "rule:" + id }

// ruleIDsKey is the Set tracking all rule IDs for enumeration.
const ruleIDsKey = keyPrefix + "rule_ids"

// ── Execution keys ──

// executionKey returns the key for an execution record: automaton:exec:{id}
func executionKey(id string) string { return keyPrefix + "exec:" + id }

// executionLogKey is the List of all execution IDs, newest first.
const executionLogKey = keyPrefix + "exec_log"

// ruleExecutionsKey returns the List key of one rule's execution IDs,
// newest first: automaton:exec_idx:{ruleID}
func ruleExecutionsKey(ruleID string) string {
	return keyPrefix + "exec_idx:" + ruleID
}
