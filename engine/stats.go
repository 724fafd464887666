package engine

import (
	"context"

	"github.com/automatonhq/automaton/rule"
)

// Statistics is the aggregate view over all stored rules.
type Statistics struct {
	TotalRules      int   `json:"total_rules"`
	ActiveRules     int   `json:"active_rules"`
	InactiveRules   int   `json:"inactive_rules"`
	TotalExecutions int64 `json:"total_executions"`
	TotalSuccesses  int64 `json:"total_successes"`
	TotalFailures   int64 `json:"total_failures"`
	// SuccessRate is a percentage in [0, 100]; 0 when nothing has run.
	SuccessRate float64 `json:"success_rate"`
	// AvgExecutionsPerRule is 0 when no rules exist.
	AvgExecutionsPerRule float64 `json:"avg_executions_per_rule"`
}

// GetStatistics folds over the rule store. Pure read, no mutation.
func (e *Engine) GetStatistics(ctx context.Context) (Statistics, error) {
	rules, err := e.store.ListRules(ctx, rule.Filter{})
	if err != nil {
		return Statistics{}, err
	}

	var s Statistics
	s.TotalRules = len(rules)
	for _, r := range rules {
		if r.State == rule.StateActive {
			s.ActiveRules++
		}
		s.TotalExecutions += r.ExecutionCount
		s.TotalSuccesses += r.SuccessCount
		s.TotalFailures += r.FailureCount
	}
	s.InactiveRules = s.TotalRules - s.ActiveRules

	if s.TotalExecutions > 0 {
		s.SuccessRate = float64(s.TotalSuccesses) / float64(s.TotalExecutions) * 100
	}
	if s.TotalRules > 0 {
		s.AvgExecutionsPerRule = float64(s.TotalExecutions) / float64(s.TotalRules)
	}
	return s, nil
}
