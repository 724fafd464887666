package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs action start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) error {
		logger.Info("action started",
			slog.String("action_type", inv.ActionType),
			slog.String("rule_id", inv.RuleID.String()),
			slog.String("rule_name", inv.RuleName),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("action failed",
				slog.String("action_type", inv.ActionType),
				slog.String("rule_id", inv.RuleID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("action completed",
				slog.String("action_type", inv.ActionType),
				slog.String("rule_id", inv.RuleID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
