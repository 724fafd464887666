package bunstore

import (
	"context"
	"fmt"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/id"
)

// AppendExecution records a terminal execution. The insert upserts on ID
// because the failure path may rewrite an execution it already appended.
func (s *Store) AppendExecution(ctx context.Context, e *execution.Execution) error {
	m, err := toExecutionModel(e)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("state = EXCLUDED.state").
		Set("completed_at = EXCLUDED.completed_at").
		Set("error = EXCLUDED.error").
		Set("results = EXCLUDED.results").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("automaton/bun: append execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (s *Store) GetExecution(ctx context.Context, execID id.ExecutionID) (*execution.Execution, error) {
	m := new(executionModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", execID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, automaton.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("automaton/bun: get execution: %w", err)
	}
	return fromExecutionModel(m)
}

// ListExecutions returns executions newest first. TypeIDs are
// K-sortable, so ordering by ID descending matches creation order even
// when StartedAt ties.
func (s *Store) ListExecutions(ctx context.Context, opts execution.ListOpts) ([]*execution.Execution, error) {
	var models []executionModel
	q := s.db.NewSelect().Model(&models).
		Order("started_at DESC").
		Order("id DESC")
	if !opts.RuleID.IsNil() {
		q = q.Where("rule_id = ?", opts.RuleID.String())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("automaton/bun: list executions: %w", err)
	}

	execs := make([]*execution.Execution, 0, len(models))
	for i := range models {
		e, err := fromExecutionModel(&models[i])
		if err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, nil
}
