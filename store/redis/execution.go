package redisstore

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/execution"
	"github.com/automatonhq/automaton/id"
)

// AppendExecution records a terminal execution. The value write upserts
// because the failure path may rewrite an execution it already appended;
// the history lists are pushed only on first sight so a rewrite never
// duplicates the entry.
func (s *Store) AppendExecution(ctx context.Context, e *execution.Execution) error {
	eID := e.ID.String()
	key := executionKey(eID)

	blob, err := encodeExecution(e)
	if err != nil {
		return err
	}

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("automaton/redis: append check exists: %w", err)
	}
	if exists > 0 {
		if err := s.client.Set(ctx, key, blob, 0).Err(); err != nil {
			return fmt.Errorf("automaton/redis: rewrite execution: %w", err)
		}
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, blob, 0)
	pipe.LPush(ctx, executionLogKey, eID)
	pipe.LPush(ctx, ruleExecutionsKey(e.RuleID.String()), eID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("automaton/redis: append execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (s *Store) GetExecution(ctx context.Context, execID id.ExecutionID) (*execution.Execution, error) {
	blob, err := s.client.Get(ctx, executionKey(execID.String())).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, automaton.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("automaton/redis: get execution: %w", err)
	}
	return decodeExecution(blob)
}

// ListExecutions returns executions newest first. LPush keeps the lists
// in reverse chronological order, so a bounded LRange is enough.
func (s *Store) ListExecutions(ctx context.Context, opts execution.ListOpts) ([]*execution.Execution, error) {
	listKey := executionLogKey
	if !opts.RuleID.IsNil() {
		listKey = ruleExecutionsKey(opts.RuleID.String())
	}

	stop := int64(-1)
	if opts.Limit > 0 {
		stop = int64(opts.Limit) - 1
	}

	ids, err := s.client.LRange(ctx, listKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("automaton/redis: list executions: %w", err)
	}

	execs := make([]*execution.Execution, 0, len(ids))
	for _, eID := range ids {
		execID, err := id.ParseExecutionID(eID)
		if err != nil {
			return nil, fmt.Errorf("automaton/redis: list executions: %w", err)
		}
		e, err := s.GetExecution(ctx, execID)
		if err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, nil
}
