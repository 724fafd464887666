package bunstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

// CreateRule persists a new rule.
func (s *Store) CreateRule(ctx context.Context, r *rule.Rule) error {
	m, err := toRuleModel(r)
	if err != nil {
		return err
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return automaton.ErrRuleAlreadyExists
		}
		return fmt.Errorf("automaton/bun: create rule: %w", err)
	}
	return nil
}

// GetRule retrieves a rule by ID.
func (s *Store) GetRule(ctx context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	m := new(ruleModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", ruleID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, automaton.ErrRuleNotFound
		}
		return nil, fmt.Errorf("automaton/bun: get rule: %w", err)
	}
	return fromRuleModel(m)
}

// UpdateRule applies a partial update inside a transaction: the current
// row is read with FOR UPDATE so concurrent updates serialize.
func (s *Store) UpdateRule(ctx context.Context, ruleID id.RuleID, u rule.Update) (*rule.Rule, error) {
	var updated *rule.Rule

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		m := new(ruleModel)
		err := tx.NewSelect().Model(m).
			Where("id = ?", ruleID.String()).
			For("UPDATE").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if isNoRows(err) {
				return automaton.ErrRuleNotFound
			}
			return fmt.Errorf("automaton/bun: select rule for update: %w", err)
		}

		r, err := fromRuleModel(m)
		if err != nil {
			return err
		}
		u.Apply(r)
		r.UpdatedAt = time.Now().UTC()

		nm, err := toRuleModel(r)
		if err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model(nm).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("automaton/bun: update rule: %w", err)
		}

		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRule removes a rule by ID.
func (s *Store) DeleteRule(ctx context.Context, ruleID id.RuleID) error {
	res, err := s.db.NewDelete().Model((*ruleModel)(nil)).
		Where("id = ?", ruleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("automaton/bun: delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("automaton/bun: delete rule rows affected: %w", err)
	}
	if affected == 0 {
		return automaton.ErrRuleNotFound
	}
	return nil
}

// ListRules returns matching rules ordered by priority (descending) then
// creation time.
func (s *Store) ListRules(ctx context.Context, f rule.Filter) ([]*rule.Rule, error) {
	var models []ruleModel
	q := s.db.NewSelect().Model(&models).
		Order("priority DESC").
		Order("created_at ASC")
	if f.State != "" {
		q = q.Where("state = ?", string(f.State))
	}
	if f.Trigger != "" {
		q = q.Where("trigger = ?", string(f.Trigger))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("automaton/bun: list rules: %w", err)
	}

	rules := make([]*rule.Rule, 0, len(models))
	for i := range models {
		r, err := fromRuleModel(&models[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// RecordResult applies an invocation result with SQL arithmetic so
// concurrent invocations of the same rule never lose increments.
func (s *Store) RecordResult(ctx context.Context, ruleID id.RuleID, res rule.Result) error {
	q := s.db.NewUpdate().Model((*ruleModel)(nil)).
		Where("id = ?", ruleID.String()).
		Set("execution_count = execution_count + 1").
		Set("updated_at = ?", time.Now().UTC())
	if res.Failed {
		q = q.Set("failure_count = failure_count + 1")
	} else {
		q = q.Set("success_count = success_count + 1").
			Set("last_executed = ?", res.At)
	}

	r, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("automaton/bun: record result: %w", err)
	}
	affected, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("automaton/bun: record result rows affected: %w", err)
	}
	if affected == 0 {
		return automaton.ErrRuleNotFound
	}
	return nil
}

// SetNextExecution records when the scheduler will next fire the rule.
func (s *Store) SetNextExecution(ctx context.Context, ruleID id.RuleID, next *time.Time) error {
	res, err := s.db.NewUpdate().Model((*ruleModel)(nil)).
		Where("id = ?", ruleID.String()).
		Set("next_execution = ?", next).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("automaton/bun: set next execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("automaton/bun: set next execution rows affected: %w", err)
	}
	if affected == 0 {
		return automaton.ErrRuleNotFound
	}
	return nil
}
