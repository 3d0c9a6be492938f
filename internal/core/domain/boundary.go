package domain

import (
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
)

// BoundaryDecision is the outcome of an eligibility check.
type BoundaryDecision struct {
	IsAllowed bool   `json:"isAllowed"`
	Reason    string `json:"reason,omitempty"`
}

// Allow returns a positive decision.
func Allow() BoundaryDecision {
	return BoundaryDecision{IsAllowed: true}
}

// Deny returns a negative decision with a human readable reason.
func Deny(reason string) BoundaryDecision {
	return BoundaryDecision{IsAllowed: false, Reason: reason}
}

// Err converts a negative decision into a business rule error, used when a domain method
// re-checks eligibility in-line.
func (d BoundaryDecision) Err() error {
	if d.IsAllowed {
		return nil
	}
	return fmt.Errorf("%w: %s", apperrors.ErrBusinessRule, d.Reason)
}

// BoundaryAction names an action an actor may be eligible for.
type BoundaryAction string

const (
	ActionView     BoundaryAction = "view"
	ActionEdit     BoundaryAction = "edit"
	ActionSubmit   BoundaryAction = "submit"
	ActionResubmit BoundaryAction = "resubmit"
	ActionApprove  BoundaryAction = "approve"
	ActionReject   BoundaryAction = "reject"
	ActionReturn   BoundaryAction = "return"
	ActionCancel   BoundaryAction = "cancel"
)

var boundaryActions = map[BoundaryAction]struct{}{
	ActionView: {}, ActionEdit: {}, ActionSubmit: {}, ActionResubmit: {},
	ActionApprove: {}, ActionReject: {}, ActionReturn: {}, ActionCancel: {},
}

// ParseBoundaryAction validates an action name.
func ParseBoundaryAction(s string) (BoundaryAction, error) {
	a := BoundaryAction(s)
	if _, ok := boundaryActions[a]; !ok {
		return "", fmt.Errorf("%w: unknown action %q", apperrors.ErrValidation, s)
	}
	return a, nil
}

// Entity types exposed through the boundary and written to the audit log.
const (
	EntityPurchaseRequest    = "PurchaseRequest"
	EntityApplication        = "ApprovalApplication"
	EntityWorkflowDefinition = "WorkflowDefinition"
)
