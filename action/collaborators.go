package action

import "context"

// The collaborator interfaces below are the engine's only outward-facing
// surface: real mail, notifications, webhooks, and the rest live behind
// them. Handlers delegate and return the collaborator's result verbatim;
// a collaborator error becomes a failed Outcome, never a raised error.

// Mailer sends email on behalf of the email action.
type Mailer interface {
	Send(ctx context.Context, recipients []string, subject, body string) (any, error)
}

// Notifier dispatches in-app or channel notifications.
type Notifier interface {
	Notify(ctx context.Context, channels []string, payload map[string]any) (any, error)
}

// DataUpdater applies field updates to business records.
type DataUpdater interface {
	ApplyUpdate(ctx context.Context, fields map[string]any, execCtx map[string]any) (any, error)
}

// APICaller invokes an external endpoint.
type APICaller interface {
	Call(ctx context.Context, endpoint string, payload map[string]any) (any, error)
}

// WorkflowTrigger starts a downstream workflow.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, workflowID string, execCtx map[string]any) (any, error)
}

// ReportGenerator produces a report of the given type.
type ReportGenerator interface {
	Generate(ctx context.Context, reportType string, execCtx map[string]any) (any, error)
}

// ApprovalRequester opens an approval request with the given approvers.
type ApprovalRequester interface {
	RequestApproval(ctx context.Context, approvers []string, execCtx map[string]any) (any, error)
}

// ScriptRunner executes a registered custom script.
type ScriptRunner interface {
	Run(ctx context.Context, scriptID string, execCtx map[string]any) (any, error)
}

// Collaborators bundles the external delegates the built-in handlers use.
// Nil fields cause the corresponding action type to fail with a
// configuration error at dispatch time.
type Collaborators struct {
	Mailer            Mailer
	Notifier          Notifier
	DataUpdater       DataUpdater
	APICaller         APICaller
	WorkflowTrigger   WorkflowTrigger
	ReportGenerator   ReportGenerator
	ApprovalRequester ApprovalRequester
	ScriptRunner      ScriptRunner
}
