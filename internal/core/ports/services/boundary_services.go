package services

import (
	"context"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PurchaseRequestBoundarySvc answers eligibility questions about one purchase request.
// A missing request is reported as an error wrapping apperrors.ErrNotFound.
type PurchaseRequestBoundarySvc interface {
	CanView(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanEdit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanSubmit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanResubmit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanApprove(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanReject(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanReturn(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanCancel(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
}

// ApplicationBoundarySvc answers eligibility questions about one application. Decisions on
// approve, reject and return resolve the current step's role from the active workflow
// definition and the actor's roles from the user directory at call time.
type ApplicationBoundarySvc interface {
	CanView(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanEdit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanSubmit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanResubmit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanApprove(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanReject(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanReturn(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
	CanCancel(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)
}

// BoundaryCheckerSvc dispatches a pre-flight check by entity type and action name.
type BoundaryCheckerSvc interface {
	Check(ctx context.Context, entityType string, action domain.BoundaryAction, actor domain.Actor, entityID string) (domain.BoundaryDecision, error)
}

// ApprovalFlowBuilderSvc resolves the approvers of a purchase request at submission.
type ApprovalFlowBuilderSvc interface {
	BuildFlow(ctx context.Context, tenantID, requesterID string, total decimal.Decimal) (domain.ApprovalFlow, error)
}
