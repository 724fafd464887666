package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// CreateRule stores the rule as a Hash and adds it to the ID set.
func (s *Store) CreateRule(ctx context.Context, r *rule.Rule) error {
	rID := r.ID.String()
	key := ruleKey(rID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("automaton/redis: create check exists: %w", err)
	}
	if exists > 0 {
		return automaton.ErrRuleAlreadyExists
	}

	blob, err := encodeRuleData(r)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		fieldData, blob,
		fieldExecutionCount, r.ExecutionCount,
		fieldSuccessCount, r.SuccessCount,
		fieldFailureCount, r.FailureCount,
		fieldLastExecuted, formatOptionalTime(r.LastExecuted),
		fieldNextExecution, formatOptionalTime(r.NextExecution),
		fieldUpdatedAt, r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.SAdd(ctx, ruleIDsKey, rID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("automaton/redis: create rule: %w", err)
	}
	return nil
}

// GetRule retrieves a rule by ID.
func (s *Store) GetRule(ctx context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	return s.getRuleByKey(ctx, ruleKey(ruleID.String()))
}

func (s *Store) getRuleByKey(ctx context.Context, key string) (*rule.Rule, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: get rule: %w", err)
	}
	if len(fields) == 0 {
		return nil, automaton.ErrRuleNotFound
	}
	return ruleFromHash(fields)
}

// UpdateRule applies a partial update and rewrites the definition blob.
// Counter fields are untouched so concurrent RecordResult calls keep
// their increments.
func (s *Store) UpdateRule(ctx context.Context, ruleID id.RuleID, u rule.Update) (*rule.Rule, error) {
	key := ruleKey(ruleID.String())

	r, err := s.getRuleByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	u.Apply(r)
	r.UpdatedAt = time.Now().UTC()

	blob, err := encodeRuleData(r)
	if err != nil {
		return nil, err
	}
	_, err = s.client.HSet(ctx, key,
		fieldData, blob,
		fieldUpdatedAt, r.UpdatedAt.Format(time.RFC3339Nano),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: update rule: %w", err)
	}
	return r, nil
}

// DeleteRule removes a rule by ID. Execution history is retained.
func (s *Store) DeleteRule(ctx context.Context, ruleID id.RuleID) error {
	rID := ruleID.String()
	key := ruleKey(rID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("automaton/redis: delete check exists: %w", err)
	}
	if exists == 0 {
		return automaton.ErrRuleNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, ruleIDsKey, rID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("automaton/redis: delete rule: %w", err)
	}
	return nil
}

// ListRules enumerates the ID set and filters in memory. Results are
// ordered by priority (descending) then creation time, matching the
// other backends.
func (s *Store) ListRules(ctx context.Context, f rule.Filter) ([]*rule.Rule, error) {
	ids, err := s.client.SMembers(ctx, ruleIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: list rule ids: %w", err)
	}

	rules := make([]*rule.Rule, 0, len(ids))
	for _, rID := range ids {
		r, err := s.getRuleByKey(ctx, ruleKey(rID))
		if err != nil {
			// The set and the hash are written in one pipeline, but a
			// concurrent delete can race the enumeration.
			if errors.Is(err, automaton.ErrRuleNotFound) {
				continue
			}
			return nil, err
		}
		if f.State != "" && r.State != f.State {
			continue
		}
		if f.Trigger != "" && r.Trigger != f.Trigger {
			continue
		}
		rules = append(rules, r)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules, nil
}

// RecordResult applies an invocation result with HIncrBy so concurrent
// invocations of the same rule never lose increments.
func (s *Store) RecordResult(ctx context.Context, ruleID id.RuleID, res rule.Result) error {
	key := ruleKey(ruleID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("automaton/redis: record result check exists: %w", err)
	}
	if exists == 0 {
		return automaton.ErrRuleNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldExecutionCount, 1)
	if res.Failed {
		pipe.HIncrBy(ctx, key, fieldFailureCount, 1)
	} else {
		pipe.HIncrBy(ctx, key, fieldSuccessCount, 1)
		pipe.HSet(ctx, key, fieldLastExecuted, res.At.UTC().Format(time.RFC3339Nano))
	}
	pipe.HSet(ctx, key, fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("automaton/redis: record result: %w", err)
	}
	return nil
}

// SetNextExecution records when the scheduler will next fire the rule.
func (s *Store) SetNextExecution(ctx context.Context, ruleID id.RuleID, next *time.Time) error {
	key := ruleKey(ruleID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("automaton/redis: set next execution check exists: %w", err)
	}
	if exists == 0 {
		return automaton.ErrRuleNotFound
	}

	_, err = s.client.HSet(ctx, key, fieldNextExecution, formatOptionalTime(next)).Result()
	if err != nil {
		return fmt.Errorf("automaton/redis: set next execution: %w", err)
	}
	return nil
}
