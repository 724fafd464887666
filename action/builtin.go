package action

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
)

// RegisterBuiltins installs the eight built-in action handlers, each
// delegating to the matching collaborator. Config fields are read
// leniently (cast coercions) so callers can store JSON-shaped configs.
func RegisterBuiltins(r *Registry, c Collaborators) {
	r.Register(TypeEmail, func(ctx context.Context, cfg, _ map[string]any) (any, error) {
		if c.Mailer == nil {
			return nil, fmt.Errorf("no mailer configured")
		}
		recipients, err := cast.ToStringSliceE(cfg["recipients"])
		if err != nil {
			return nil, fmt.Errorf("email: bad recipients: %w", err)
		}
		return c.Mailer.Send(ctx, recipients, cast.ToString(cfg["subject"]), cast.ToString(cfg["body"]))
	})

	r.Register(TypeNotification, func(ctx context.Context, cfg, _ map[string]any) (any, error) {
		if c.Notifier == nil {
			return nil, fmt.Errorf("no notifier configured")
		}
		channels, err := cast.ToStringSliceE(cfg["channels"])
		if err != nil {
			return nil, fmt.Errorf("notification: bad channels: %w", err)
		}
		payload, _ := cast.ToStringMapE(cfg["payload"])
		return c.Notifier.Notify(ctx, channels, payload)
	})

	r.Register(TypeDataUpdate, func(ctx context.Context, cfg, execCtx map[string]any) (any, error) {
		if c.DataUpdater == nil {
			return nil, fmt.Errorf("no data updater configured")
		}
		fields, err := cast.ToStringMapE(cfg["fields"])
		if err != nil {
			return nil, fmt.Errorf("data_update: bad fields: %w", err)
		}
		return c.DataUpdater.ApplyUpdate(ctx, fields, execCtx)
	})

	r.Register(TypeAPICall, func(ctx context.Context, cfg, _ map[string]any) (any, error) {
		if c.APICaller == nil {
			return nil, fmt.Errorf("no api caller configured")
		}
		endpoint := cast.ToString(cfg["endpoint"])
		if endpoint == "" {
			return nil, fmt.Errorf("api_call: endpoint required")
		}
		payload, _ := cast.ToStringMapE(cfg["payload"])
		return c.APICaller.Call(ctx, endpoint, payload)
	})

	r.Register(TypeWorkflowTrigger, func(ctx context.Context, cfg, execCtx map[string]any) (any, error) {
		if c.WorkflowTrigger == nil {
			return nil, fmt.Errorf("no workflow trigger configured")
		}
		workflowID := cast.ToString(cfg["workflow_id"])
		if workflowID == "" {
			return nil, fmt.Errorf("workflow_trigger: workflow_id required")
		}
		return c.WorkflowTrigger.Trigger(ctx, workflowID, execCtx)
	})

	r.Register(TypeReportGeneration, func(ctx context.Context, cfg, execCtx map[string]any) (any, error) {
		if c.ReportGenerator == nil {
			return nil, fmt.Errorf("no report generator configured")
		}
		return c.ReportGenerator.Generate(ctx, cast.ToString(cfg["report_type"]), execCtx)
	})

	r.Register(TypeApprovalRequest, func(ctx context.Context, cfg, execCtx map[string]any) (any, error) {
		if c.ApprovalRequester == nil {
			return nil, fmt.Errorf("no approval requester configured")
		}
		approvers, err := cast.ToStringSliceE(cfg["approvers"])
		if err != nil {
			return nil, fmt.Errorf("approval_request: bad approvers: %w", err)
		}
		return c.ApprovalRequester.RequestApproval(ctx, approvers, execCtx)
	})

	r.Register(TypeCustomScript, func(ctx context.Context, cfg, execCtx map[string]any) (any, error) {
		if c.ScriptRunner == nil {
			return nil, fmt.Errorf("no script runner configured")
		}
		scriptID := cast.ToString(cfg["script_id"])
		if scriptID == "" {
			return nil, fmt.Errorf("custom_script: script_id required")
		}
		return c.ScriptRunner.Run(ctx, scriptID, execCtx)
	})
}
