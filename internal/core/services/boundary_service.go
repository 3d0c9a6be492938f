package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
)

// purchaseRequestBoundary loads the request and delegates to its can-methods.
type purchaseRequestBoundary struct {
	repo portsrepo.PurchaseRequestReader
}

func NewPurchaseRequestBoundary(repo portsrepo.PurchaseRequestReader) portssvc.PurchaseRequestBoundarySvc {
	return &purchaseRequestBoundary{repo: repo}
}

func (b *purchaseRequestBoundary) decide(ctx context.Context, id string, rule func(*domain.PurchaseRequest) domain.BoundaryDecision) (domain.BoundaryDecision, error) {
	pr, err := b.repo.FindPurchaseRequestByID(ctx, id)
	if err != nil {
		return domain.BoundaryDecision{}, err
	}
	return rule(pr), nil
}

func (b *purchaseRequestBoundary) CanView(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(pr *domain.PurchaseRequest) domain.BoundaryDecision { return pr.CanView(actor) })
}

func (b *purchaseRequestBoundary) CanEdit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(pr *domain.PurchaseRequest) domain.BoundaryDecision { return pr.CanEdit(actor) })
}

func (b *purchaseRequestBoundary) CanSubmit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(pr *domain.PurchaseRequest) domain.BoundaryDecision { return pr.CanSubmit(actor) })
}

func (b *purchaseRequestBoundary) CanResubmit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(pr *domain.PurchaseRequest) domain.BoundaryDecision { return pr.CanResubmit(actor) })
}

func (b *purchaseRequestBoundary) CanApprove(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(pr *domain.PurchaseRequest) domain.BoundaryDecision { return pr.CanApprove(actor) })
}

func (b *purchaseRequestBoundary) CanReject(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(pr *domain.PurchaseRequest) domain.BoundaryDecision { return pr.CanReject(actor) })
}

func (b *purchaseRequestBoundary) CanReturn(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(pr *domain.PurchaseRequest) domain.BoundaryDecision { return pr.CanReturn(actor) })
}

func (b *purchaseRequestBoundary) CanCancel(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(pr *domain.PurchaseRequest) domain.BoundaryDecision { return pr.CanCancel(actor) })
}

// applicationBoundary loads the application and, for decisions on a step, the active
// workflow definition and the actor's directory roles.
type applicationBoundary struct {
	repo      portsrepo.ApplicationReader
	workflows portsrepo.WorkflowDefinitionReader
	directory portsrepo.UserDirectoryReader
}

func NewApplicationBoundary(
	repo portsrepo.ApplicationReader,
	workflows portsrepo.WorkflowDefinitionReader,
	directory portsrepo.UserDirectoryReader,
) portssvc.ApplicationBoundarySvc {
	return &applicationBoundary{repo: repo, workflows: workflows, directory: directory}
}

func (b *applicationBoundary) decide(ctx context.Context, id string, rule func(*domain.ApprovalApplication) domain.BoundaryDecision) (domain.BoundaryDecision, error) {
	app, err := b.repo.FindApplicationByID(ctx, id)
	if err != nil {
		return domain.BoundaryDecision{}, err
	}
	return rule(app), nil
}

// stepContext returns the active definition (nil when there is none) and the actor's roles.
func (b *applicationBoundary) stepContext(ctx context.Context, actor domain.Actor, app *domain.ApprovalApplication) (*domain.WorkflowDefinition, []string, error) {
	return resolveStepContext(ctx, b.workflows, b.directory, actor, app)
}

func (b *applicationBoundary) decideStep(ctx context.Context, actor domain.Actor, id string,
	rule func(*domain.ApprovalApplication, *domain.WorkflowDefinition, []string) domain.BoundaryDecision,
) (domain.BoundaryDecision, error) {
	app, err := b.repo.FindApplicationByID(ctx, id)
	if err != nil {
		return domain.BoundaryDecision{}, err
	}
	def, roles, err := b.stepContext(ctx, actor, app)
	if err != nil {
		return domain.BoundaryDecision{}, err
	}
	return rule(app, def, roles), nil
}

func (b *applicationBoundary) CanView(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(a *domain.ApprovalApplication) domain.BoundaryDecision { return a.CanView(actor) })
}

func (b *applicationBoundary) CanEdit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(a *domain.ApprovalApplication) domain.BoundaryDecision { return a.CanEdit(actor) })
}

func (b *applicationBoundary) CanSubmit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(a *domain.ApprovalApplication) domain.BoundaryDecision { return a.CanSubmit(actor) })
}

func (b *applicationBoundary) CanResubmit(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(a *domain.ApprovalApplication) domain.BoundaryDecision { return a.CanResubmit(actor) })
}

func (b *applicationBoundary) CanApprove(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decideStep(ctx, actor, id, func(a *domain.ApprovalApplication, def *domain.WorkflowDefinition, roles []string) domain.BoundaryDecision {
		return a.CanApprove(actor, def, roles)
	})
}

func (b *applicationBoundary) CanReject(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decideStep(ctx, actor, id, func(a *domain.ApprovalApplication, def *domain.WorkflowDefinition, roles []string) domain.BoundaryDecision {
		return a.CanReject(actor, def, roles)
	})
}

func (b *applicationBoundary) CanReturn(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decideStep(ctx, actor, id, func(a *domain.ApprovalApplication, def *domain.WorkflowDefinition, roles []string) domain.BoundaryDecision {
		return a.CanReturn(actor, def, roles)
	})
}

func (b *applicationBoundary) CanCancel(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error) {
	return b.decide(ctx, id, func(a *domain.ApprovalApplication) domain.BoundaryDecision { return a.CanCancel(actor) })
}

func resolveStepContext(
	ctx context.Context,
	workflows portsrepo.WorkflowDefinitionReader,
	directory portsrepo.UserDirectoryReader,
	actor domain.Actor,
	app *domain.ApprovalApplication,
) (*domain.WorkflowDefinition, []string, error) {
	def, err := workflows.FindActiveWorkflowDefinition(ctx, app.TenantID(), app.ApplicationType())
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, err
	}
	roles, err := directory.FindRolesByUser(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return nil, nil, err
	}
	return def, roles, nil
}

// boundaryChecker routes pre-flight checks to the boundary of the entity type.
type boundaryChecker struct {
	purchaseRequests portssvc.PurchaseRequestBoundarySvc
	applications     portssvc.ApplicationBoundarySvc
}

func NewBoundaryChecker(purchaseRequests portssvc.PurchaseRequestBoundarySvc, applications portssvc.ApplicationBoundarySvc) portssvc.BoundaryCheckerSvc {
	return &boundaryChecker{purchaseRequests: purchaseRequests, applications: applications}
}

type boundaryFunc func(ctx context.Context, actor domain.Actor, id string) (domain.BoundaryDecision, error)

func (c *boundaryChecker) Check(ctx context.Context, entityType string, action domain.BoundaryAction, actor domain.Actor, entityID string) (domain.BoundaryDecision, error) {
	var table map[domain.BoundaryAction]boundaryFunc
	switch entityType {
	case domain.EntityPurchaseRequest:
		pr := c.purchaseRequests
		table = map[domain.BoundaryAction]boundaryFunc{
			domain.ActionView: pr.CanView, domain.ActionEdit: pr.CanEdit,
			domain.ActionSubmit: pr.CanSubmit, domain.ActionResubmit: pr.CanResubmit,
			domain.ActionApprove: pr.CanApprove, domain.ActionReject: pr.CanReject,
			domain.ActionReturn: pr.CanReturn, domain.ActionCancel: pr.CanCancel,
		}
	case domain.EntityApplication:
		app := c.applications
		table = map[domain.BoundaryAction]boundaryFunc{
			domain.ActionView: app.CanView, domain.ActionEdit: app.CanEdit,
			domain.ActionSubmit: app.CanSubmit, domain.ActionResubmit: app.CanResubmit,
			domain.ActionApprove: app.CanApprove, domain.ActionReject: app.CanReject,
			domain.ActionReturn: app.CanReturn, domain.ActionCancel: app.CanCancel,
		}
	default:
		return domain.BoundaryDecision{}, fmt.Errorf("%w: unknown entity type %q", apperrors.ErrValidation, entityType)
	}

	fn, ok := table[action]
	if !ok {
		return domain.BoundaryDecision{}, fmt.Errorf("%w: unknown action %q", apperrors.ErrValidation, action)
	}
	return fn(ctx, actor, entityID)
}
