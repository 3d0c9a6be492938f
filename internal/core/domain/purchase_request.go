package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/shopspring/decimal"
)

// PurchaseRequestStatus is the lifecycle state of a purchase request.
type PurchaseRequestStatus string

const (
	PurchaseRequestDraft           PurchaseRequestStatus = "Draft"
	PurchaseRequestPendingApproval PurchaseRequestStatus = "PendingApproval"
	PurchaseRequestApprovedStatus  PurchaseRequestStatus = "Approved"
	PurchaseRequestRejectedStatus  PurchaseRequestStatus = "Rejected"
	PurchaseRequestReturnedStatus  PurchaseRequestStatus = "Returned"
	PurchaseRequestCancelledStatus PurchaseRequestStatus = "Cancelled"
)

var purchaseRequestTransitions = map[PurchaseRequestStatus][]PurchaseRequestStatus{
	PurchaseRequestDraft: {PurchaseRequestPendingApproval, PurchaseRequestCancelledStatus},
	PurchaseRequestPendingApproval: {
		PurchaseRequestApprovedStatus,
		PurchaseRequestRejectedStatus,
		PurchaseRequestReturnedStatus,
		PurchaseRequestCancelledStatus,
	},
	PurchaseRequestReturnedStatus:  {PurchaseRequestPendingApproval, PurchaseRequestCancelledStatus},
	PurchaseRequestApprovedStatus:  {},
	PurchaseRequestRejectedStatus:  {},
	PurchaseRequestCancelledStatus: {},
}

// PurchaseRequestStateMachine guards purchase request status changes.
var PurchaseRequestStateMachine = NewStateMachine("purchase request", purchaseRequestTransitions)

// LineItem is one requested good or service.
type LineItem struct {
	LineNumber  int             `json:"lineNumber"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Amount is quantity times unit price.
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// DecisionAction is what an approver (or the requester) did at a step.
type DecisionAction string

const (
	DecisionApproved  DecisionAction = "approved"
	DecisionRejected  DecisionAction = "rejected"
	DecisionReturned  DecisionAction = "returned"
	DecisionCancelled DecisionAction = "cancelled"
)

// Decision is an entry of the decision history kept on approvable aggregates.
type Decision struct {
	StepNumber int            `json:"stepNumber"`
	Action     DecisionAction `json:"action"`
	ActorID    string         `json:"actorId"`
	ActorName  string         `json:"actorName"`
	Comment    string         `json:"comment,omitempty"`
	DecidedAt  time.Time      `json:"decidedAt"`
}

// PurchaseRequestState is the persisted shape of a purchase request.
type PurchaseRequestState struct {
	ID            string                `json:"id"`
	TenantID      string                `json:"tenantId"`
	RequesterID   string                `json:"requesterId"`
	RequesterName string                `json:"requesterName"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Items         []LineItem            `json:"items"`
	Status        PurchaseRequestStatus `json:"status"`
	CurrentStep   int                   `json:"currentStep"` // 0 while no step is awaiting a decision
	ApprovalSteps []ApprovalStep        `json:"approvalSteps"`
	Decisions     []Decision            `json:"decisions"`
	Version       int64                 `json:"version"`
	AuditFields
}

// PurchaseRequest is the aggregate root for an amount-driven approval.
type PurchaseRequest struct {
	aggregateRoot
	state PurchaseRequestState
	flow  ApprovalFlow
}

// NewPurchaseRequest creates a Draft purchase request owned by requester.
func NewPurchaseRequest(id string, requester Actor, title, description string, items []LineItem, now time.Time) (*PurchaseRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: purchase request id is required", apperrors.ErrValidation)
	}
	if requester.UserID == "" || requester.TenantID == "" {
		return nil, fmt.Errorf("%w: requester must belong to a tenant", apperrors.ErrValidation)
	}
	normalized, err := normalizeLineItems(items)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}

	pr := &PurchaseRequest{
		state: PurchaseRequestState{
			ID:            id,
			TenantID:      requester.TenantID,
			RequesterID:   requester.UserID,
			RequesterName: requester.UserName,
			Title:         title,
			Description:   description,
			Items:         normalized,
			Status:        PurchaseRequestDraft,
			AuditFields:   newAuditFields(requester.UserID, now),
		},
	}
	pr.raise(PurchaseRequestCreated{
		EventMeta:   newEventMeta(id, now),
		TenantID:    pr.state.TenantID,
		RequesterID: pr.state.RequesterID,
		Title:       title,
		TotalAmount: pr.TotalAmount(),
	})
	return pr, nil
}

// RestorePurchaseRequest rebuilds an aggregate from persisted state without raising events.
func RestorePurchaseRequest(s PurchaseRequestState) (*PurchaseRequest, error) {
	pr := &PurchaseRequest{state: s.clone()}
	pr.version = s.Version
	if len(s.ApprovalSteps) > 0 {
		flow, err := NewApprovalFlow(s.ApprovalSteps)
		if err != nil {
			return nil, fmt.Errorf("restore purchase request %s: %w", s.ID, err)
		}
		pr.flow = flow
	}
	return pr, nil
}

func normalizeLineItems(items []LineItem) ([]LineItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", apperrors.ErrValidation)
	}
	out := make([]LineItem, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.Description) == "" {
			return nil, fmt.Errorf("%w: line %d needs a description", apperrors.ErrValidation, i+1)
		}
		if !it.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", apperrors.ErrValidation, i+1)
		}
		if it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: line %d unit price cannot be negative", apperrors.ErrValidation, i+1)
		}
		it.LineNumber = i + 1
		it.Description = strings.TrimSpace(it.Description)
		out[i] = it
	}
	return out, nil
}

func (s PurchaseRequestState) clone() PurchaseRequestState {
	c := s
	c.Items = append([]LineItem(nil), s.Items...)
	c.ApprovalSteps = append([]ApprovalStep(nil), s.ApprovalSteps...)
	c.Decisions = append([]Decision(nil), s.Decisions...)
	return c
}

func (pr *PurchaseRequest) AggregateType() string { return EntityPurchaseRequest }
func (pr *PurchaseRequest) AggregateID() string   { return pr.state.ID }

// Snapshot returns the state as of now.
func (pr *PurchaseRequest) Snapshot() any { return pr.State() }

// State returns a deep copy of the persisted shape.
func (pr *PurchaseRequest) State() PurchaseRequestState {
	s := pr.state.clone()
	s.Version = pr.version
	return s
}

func (pr *PurchaseRequest) ID() string                    { return pr.state.ID }
func (pr *PurchaseRequest) TenantID() string              { return pr.state.TenantID }
func (pr *PurchaseRequest) RequesterID() string           { return pr.state.RequesterID }
func (pr *PurchaseRequest) Status() PurchaseRequestStatus { return pr.state.Status }
func (pr *PurchaseRequest) CurrentStep() int              { return pr.state.CurrentStep }
func (pr *PurchaseRequest) ApprovalFlow() ApprovalFlow    { return pr.flow }

// TotalAmount is the sum of all line amounts.
func (pr *PurchaseRequest) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range pr.state.Items {
		total = total.Add(it.Amount())
	}
	return total
}

func (pr *PurchaseRequest) sameTenant(actor Actor) bool {
	return actor.TenantID == pr.state.TenantID
}

func (pr *PurchaseRequest) isRequester(actor Actor) bool {
	return pr.sameTenant(actor) && actor.UserID == pr.state.RequesterID
}

// CanView allows the requester, any approver of the flow and tenant admins.
func (pr *PurchaseRequest) CanView(actor Actor) BoundaryDecision {
	if !pr.sameTenant(actor) {
		return Deny("purchase request belongs to another tenant")
	}
	if actor.UserID == pr.state.RequesterID || pr.flow.Includes(actor.UserID) || actor.HasRole(RoleAdmin) {
		return Allow()
	}
	return Deny("only the requester, its approvers or an admin can view this purchase request")
}

// CanEdit allows the requester to change a Draft or Returned request.
func (pr *PurchaseRequest) CanEdit(actor Actor) BoundaryDecision {
	if !pr.isRequester(actor) {
		return Deny("only the requester can edit this purchase request")
	}
	if pr.state.Status != PurchaseRequestDraft && pr.state.Status != PurchaseRequestReturnedStatus {
		return Deny(fmt.Sprintf("purchase request in status %s cannot be edited", pr.state.Status))
	}
	return Allow()
}

// CanSubmit allows the requester to send a Draft request for approval.
func (pr *PurchaseRequest) CanSubmit(actor Actor) BoundaryDecision {
	if !pr.isRequester(actor) {
		return Deny("only the requester can submit this purchase request")
	}
	if pr.state.Status != PurchaseRequestDraft {
		return Deny(fmt.Sprintf("purchase request in status %s cannot be submitted", pr.state.Status))
	}
	return Allow()
}

// CanResubmit allows the requester to send a Returned request back into approval.
func (pr *PurchaseRequest) CanResubmit(actor Actor) BoundaryDecision {
	if !pr.isRequester(actor) {
		return Deny("only the requester can resubmit this purchase request")
	}
	if pr.state.Status != PurchaseRequestReturnedStatus {
		return Deny(fmt.Sprintf("purchase request in status %s cannot be resubmitted", pr.state.Status))
	}
	return Allow()
}

// CanApprove allows only the approver snapshotted for the current step.
func (pr *PurchaseRequest) CanApprove(actor Actor) BoundaryDecision {
	return pr.canDecide(actor)
}

// CanReject has the same eligibility as CanApprove.
func (pr *PurchaseRequest) CanReject(actor Actor) BoundaryDecision {
	return pr.canDecide(actor)
}

// CanReturn has the same eligibility as CanApprove.
func (pr *PurchaseRequest) CanReturn(actor Actor) BoundaryDecision {
	return pr.canDecide(actor)
}

func (pr *PurchaseRequest) canDecide(actor Actor) BoundaryDecision {
	if !pr.sameTenant(actor) {
		return Deny("purchase request belongs to another tenant")
	}
	if pr.state.Status != PurchaseRequestPendingApproval {
		return Deny("purchase request is not pending approval")
	}
	step, ok := pr.flow.Step(pr.state.CurrentStep)
	if !ok {
		return Deny(fmt.Sprintf("purchase request has no approval step %d", pr.state.CurrentStep))
	}
	if step.ApproverID != actor.UserID {
		return Deny(fmt.Sprintf("step %d is assigned to another approver", step.StepNumber))
	}
	return Allow()
}

// CanCancel allows the requester to withdraw a request that is not yet final.
func (pr *PurchaseRequest) CanCancel(actor Actor) BoundaryDecision {
	if !pr.isRequester(actor) {
		return Deny("only the requester can cancel this purchase request")
	}
	if !PurchaseRequestStateMachine.CanTransition(pr.state.Status, PurchaseRequestCancelledStatus) {
		return Deny(fmt.Sprintf("purchase request in status %s cannot be cancelled", pr.state.Status))
	}
	return Allow()
}

// Edit replaces the editable fields. expectedVersion, when given, must match the loaded
// version.
func (pr *PurchaseRequest) Edit(actor Actor, title, description string, items []LineItem, expectedVersion *int64, now time.Time) error {
	if expectedVersion != nil && *expectedVersion != pr.version {
		return fmt.Errorf("%w: purchase request %s is at version %d, expected %d", apperrors.ErrConcurrencyConflict, pr.state.ID, pr.version, *expectedVersion)
	}
	if err := pr.CanEdit(actor).Err(); err != nil {
		return err
	}
	normalized, err := normalizeLineItems(items)
	if err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}

	pr.state.Title = title
	pr.state.Description = description
	pr.state.Items = normalized
	pr.state.touch(actor.UserID, now)
	pr.raise(PurchaseRequestEdited{
		EventMeta:   newEventMeta(pr.state.ID, now),
		EditedBy:    actor.UserID,
		Title:       title,
		TotalAmount: pr.TotalAmount(),
	})
	return nil
}

// Submit sends a Draft request into approval along flow.
func (pr *PurchaseRequest) Submit(actor Actor, flow ApprovalFlow, now time.Time) error {
	if err := pr.CanSubmit(actor).Err(); err != nil {
		return err
	}
	if err := pr.enterApproval(flow, now, actor); err != nil {
		return err
	}
	pr.raise(PurchaseRequestSubmitted{
		EventMeta:   newEventMeta(pr.state.ID, now),
		SubmittedBy: actor.UserID,
		TotalAmount: pr.TotalAmount(),
		Steps:       flow.Steps(),
	})
	return nil
}

// Resubmit sends a Returned request back into approval from step 1 along a freshly
// resolved flow.
func (pr *PurchaseRequest) Resubmit(actor Actor, flow ApprovalFlow, now time.Time) error {
	if err := pr.CanResubmit(actor).Err(); err != nil {
		return err
	}
	if err := pr.enterApproval(flow, now, actor); err != nil {
		return err
	}
	pr.raise(PurchaseRequestResubmitted{
		EventMeta:     newEventMeta(pr.state.ID, now),
		ResubmittedBy: actor.UserID,
		TotalAmount:   pr.TotalAmount(),
		Steps:         flow.Steps(),
	})
	return nil
}

func (pr *PurchaseRequest) enterApproval(flow ApprovalFlow, now time.Time, actor Actor) error {
	if flow.IsEmpty() {
		return fmt.Errorf("%w: approval flow is empty", apperrors.ErrValidation)
	}
	if err := PurchaseRequestStateMachine.ValidateTransition(pr.state.Status, PurchaseRequestPendingApproval); err != nil {
		return err
	}
	pr.flow = flow
	pr.state.ApprovalSteps = flow.Steps()
	pr.state.Status = PurchaseRequestPendingApproval
	pr.state.CurrentStep = 1
	pr.state.touch(actor.UserID, now)
	return nil
}

// Approve records the current approver's approval and advances the step pointer. The last
// step moves the request to Approved.
func (pr *PurchaseRequest) Approve(actor Actor, comment string, now time.Time) error {
	if err := pr.CanApprove(actor).Err(); err != nil {
		return err
	}
	step := pr.state.CurrentStep
	pr.recordDecision(actor, DecisionApproved, comment, now)

	if step < pr.flow.Len() {
		pr.state.CurrentStep = step + 1
		pr.state.touch(actor.UserID, now)
		pr.raise(PurchaseRequestStepApproved{
			EventMeta:  newEventMeta(pr.state.ID, now),
			StepNumber: step,
			ApproverID: actor.UserID,
			NextStep:   step + 1,
		})
		return nil
	}

	if err := PurchaseRequestStateMachine.ValidateTransition(pr.state.Status, PurchaseRequestApprovedStatus); err != nil {
		return err
	}
	pr.state.Status = PurchaseRequestApprovedStatus
	pr.state.CurrentStep = 0
	pr.state.touch(actor.UserID, now)
	pr.raise(PurchaseRequestApproved{
		EventMeta:   newEventMeta(pr.state.ID, now),
		TenantID:    pr.state.TenantID,
		RequesterID: pr.state.RequesterID,
		ApproverID:  actor.UserID,
		TotalAmount: pr.TotalAmount(),
	})
	return nil
}

// Reject ends the approval with a reason.
func (pr *PurchaseRequest) Reject(actor Actor, reason string, now time.Time) error {
	if err := pr.CanReject(actor).Err(); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: a rejection reason is required", apperrors.ErrValidation)
	}
	if err := PurchaseRequestStateMachine.ValidateTransition(pr.state.Status, PurchaseRequestRejectedStatus); err != nil {
		return err
	}
	step := pr.state.CurrentStep
	pr.recordDecision(actor, DecisionRejected, reason, now)
	pr.state.Status = PurchaseRequestRejectedStatus
	pr.state.CurrentStep = 0
	pr.state.touch(actor.UserID, now)
	pr.raise(PurchaseRequestRejected{
		EventMeta:  newEventMeta(pr.state.ID, now),
		StepNumber: step,
		RejectedBy: actor.UserID,
		Reason:     reason,
	})
	return nil
}

// Return hands the request back to the requester for changes.
func (pr *PurchaseRequest) Return(actor Actor, reason string, now time.Time) error {
	if err := pr.CanReturn(actor).Err(); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: a return reason is required", apperrors.ErrValidation)
	}
	if err := PurchaseRequestStateMachine.ValidateTransition(pr.state.Status, PurchaseRequestReturnedStatus); err != nil {
		return err
	}
	step := pr.state.CurrentStep
	pr.recordDecision(actor, DecisionReturned, reason, now)
	pr.state.Status = PurchaseRequestReturnedStatus
	pr.state.CurrentStep = 0
	pr.state.touch(actor.UserID, now)
	pr.raise(PurchaseRequestReturned{
		EventMeta:  newEventMeta(pr.state.ID, now),
		StepNumber: step,
		ReturnedBy: actor.UserID,
		Reason:     reason,
	})
	return nil
}

// Cancel withdraws the request.
func (pr *PurchaseRequest) Cancel(actor Actor, reason string, now time.Time) error {
	if err := pr.CanCancel(actor).Err(); err != nil {
		return err
	}
	if err := PurchaseRequestStateMachine.ValidateTransition(pr.state.Status, PurchaseRequestCancelledStatus); err != nil {
		return err
	}
	pr.recordDecision(actor, DecisionCancelled, reason, now)
	pr.state.Status = PurchaseRequestCancelledStatus
	pr.state.CurrentStep = 0
	pr.state.touch(actor.UserID, now)
	pr.raise(PurchaseRequestCancelled{
		EventMeta:   newEventMeta(pr.state.ID, now),
		CancelledBy: actor.UserID,
		Reason:      reason,
	})
	return nil
}

func (pr *PurchaseRequest) recordDecision(actor Actor, action DecisionAction, comment string, now time.Time) {
	pr.state.Decisions = append(pr.state.Decisions, Decision{
		StepNumber: pr.state.CurrentStep,
		Action:     action,
		ActorID:    actor.UserID,
		ActorName:  actor.UserName,
		Comment:    comment,
		DecidedAt:  now.UTC(),
	})
}
