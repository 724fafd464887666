// Package action provides the action executor registry: a typed mapping
// from action type to a handler that performs one side-effecting step of a
// rule by delegating to an injected collaborator.
//
// Execute never raises: every dispatch — including an unknown action type
// and a handler error — is captured into a structured Outcome so one
// action's failure cannot abort the rest of an invocation.
package action

import "time"

// Status is the terminal status of one action dispatch, or of a whole
// invocation's skip record.
type Status string

const (
	// StatusSuccess means the handler completed without error.
	StatusSuccess Status = "success"
	// StatusFailed means the handler returned an error or the type was
	// unknown.
	StatusFailed Status = "failed"
	// StatusSkipped marks the single result entry of an invocation whose
	// conditions were not met. No handler ran.
	StatusSkipped Status = "skipped"
)

// Outcome records the result of one action dispatch. Outcomes are
// immutable once appended to an execution's results.
type Outcome struct {
	Type      string    `json:"type"`
	Status    Status    `json:"status"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Built-in action types. Each delegates to the matching collaborator.
const (
	TypeEmail            = "email"
	TypeNotification     = "notification"
	TypeDataUpdate       = "data_update"
	TypeAPICall          = "api_call"
	TypeWorkflowTrigger  = "workflow_trigger"
	TypeReportGeneration = "report_generation"
	TypeApprovalRequest  = "approval_request"
	TypeCustomScript     = "custom_script"
)
