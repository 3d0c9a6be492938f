package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/core/pipeline"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/SscSPs/procureflow/internal/dto"
)

// Purchase request operation types.
const (
	OpPurchaseRequestCreate   = "purchase_request.create"
	OpPurchaseRequestEdit     = "purchase_request.edit"
	OpPurchaseRequestSubmit   = "purchase_request.submit"
	OpPurchaseRequestApprove  = "purchase_request.approve"
	OpPurchaseRequestReject   = "purchase_request.reject"
	OpPurchaseRequestReturn   = "purchase_request.return"
	OpPurchaseRequestResubmit = "purchase_request.resubmit"
	OpPurchaseRequestCancel   = "purchase_request.cancel"
	OpPurchaseRequestGet      = "purchase_request.get"
)

// PurchaseRequestService owns the purchase request operations.
type PurchaseRequestService struct {
	BaseService
	repo     portsrepo.PurchaseRequestRepositoryFacade
	boundary portssvc.PurchaseRequestBoundarySvc
	flows    portssvc.ApprovalFlowBuilderSvc
}

func NewPurchaseRequestService(
	base BaseService,
	repo portsrepo.PurchaseRequestRepositoryFacade,
	boundary portssvc.PurchaseRequestBoundarySvc,
	flows portssvc.ApprovalFlowBuilderSvc,
) *PurchaseRequestService {
	return &PurchaseRequestService{BaseService: base, repo: repo, boundary: boundary, flows: flows}
}

// Register adds every purchase request operation to reg.
func (s *PurchaseRequestService) Register(reg *pipeline.Registry) {
	pipeline.MustRegister(reg, pipeline.Handler[dto.CreatePurchaseRequest, dto.PurchaseRequestView]{
		Type: OpPurchaseRequestCreate,
		Kind: pipeline.KindCommand,
		Authorize: func(_ context.Context, actor domain.Actor, _ dto.CreatePurchaseRequest) (domain.BoundaryDecision, error) {
			return requireTenant(actor), nil
		},
		Handle: s.create,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.EditPurchaseRequest, dto.PurchaseRequestView]{
		Type: OpPurchaseRequestEdit,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.EditPurchaseRequest) (domain.BoundaryDecision, error) {
			return s.boundary.CanEdit(ctx, actor, p.ID)
		},
		Handle: s.edit,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.EntityRef, dto.PurchaseRequestView]{
		Type: OpPurchaseRequestSubmit,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.EntityRef) (domain.BoundaryDecision, error) {
			return s.boundary.CanSubmit(ctx, actor, p.ID)
		},
		Handle: s.submit,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.ApproveRequest, dto.PurchaseRequestView]{
		Type: OpPurchaseRequestApprove,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.ApproveRequest) (domain.BoundaryDecision, error) {
			return s.boundary.CanApprove(ctx, actor, p.ID)
		},
		Handle: s.approve,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.ReasonRequest, dto.PurchaseRequestView]{
		Type: OpPurchaseRequestReject,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.ReasonRequest) (domain.BoundaryDecision, error) {
			return s.boundary.CanReject(ctx, actor, p.ID)
		},
		Handle: s.reject,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.ReasonRequest, dto.PurchaseRequestView]{
		Type: OpPurchaseRequestReturn,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.ReasonRequest) (domain.BoundaryDecision, error) {
			return s.boundary.CanReturn(ctx, actor, p.ID)
		},
		Handle: s.sendBack,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.EntityRef, dto.PurchaseRequestView]{
		Type: OpPurchaseRequestResubmit,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.EntityRef) (domain.BoundaryDecision, error) {
			return s.boundary.CanResubmit(ctx, actor, p.ID)
		},
		Handle: s.resubmit,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.CancelRequest, dto.PurchaseRequestView]{
		Type: OpPurchaseRequestCancel,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.CancelRequest) (domain.BoundaryDecision, error) {
			return s.boundary.CanCancel(ctx, actor, p.ID)
		},
		Handle: s.cancel,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.EntityRef, dto.PurchaseRequestView]{
		Type: OpPurchaseRequestGet,
		Kind: pipeline.KindQuery,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.EntityRef) (domain.BoundaryDecision, error) {
			return s.boundary.CanView(ctx, actor, p.ID)
		},
		CacheKey: func(p dto.EntityRef) string { return p.ID },
		Handle:   s.get,
	})
}

func requireTenant(actor domain.Actor) domain.BoundaryDecision {
	if actor.TenantID == "" {
		return domain.Deny("actor does not belong to a tenant")
	}
	return domain.Allow()
}

func (s *PurchaseRequestService) create(ctx context.Context, p dto.CreatePurchaseRequest) (dto.PurchaseRequestView, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return dto.PurchaseRequestView{}, err
	}
	pr, err := domain.NewPurchaseRequest(s.IDs.NewID(), actor, p.Title, p.Description, dto.ToLineItems(p.Items), s.Clock.Now())
	if err != nil {
		return dto.PurchaseRequestView{}, err
	}
	if err := s.repo.SavePurchaseRequest(ctx, pr); err != nil {
		s.logFailure(ctx, err, "Failed to save purchase request", slog.String("purchase_request_id", pr.ID()))
		return dto.PurchaseRequestView{}, err
	}
	if err := pipeline.ScopeFrom(ctx).TrackSaved(pr); err != nil {
		return dto.PurchaseRequestView{}, err
	}
	s.LogInfo(ctx, "Purchase request created",
		slog.String("purchase_request_id", pr.ID()),
		slog.String("total", pr.TotalAmount().String()))
	return dto.ToPurchaseRequestView(pr), nil
}

// mutate loads the request, applies fn and saves the whole aggregate within the open unit
// of work.
func (s *PurchaseRequestService) mutate(ctx context.Context, id string, fn func(actor domain.Actor, pr *domain.PurchaseRequest) error) (dto.PurchaseRequestView, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return dto.PurchaseRequestView{}, err
	}
	pr, err := s.repo.FindPurchaseRequestByID(ctx, id)
	if err != nil {
		s.logFailure(ctx, err, "Failed to load purchase request", slog.String("purchase_request_id", id))
		return dto.PurchaseRequestView{}, err
	}
	scope := pipeline.ScopeFrom(ctx)
	if err := scope.TrackLoaded(pr); err != nil {
		return dto.PurchaseRequestView{}, err
	}
	if err := fn(actor, pr); err != nil {
		return dto.PurchaseRequestView{}, err
	}
	if err := s.repo.SavePurchaseRequest(ctx, pr); err != nil {
		s.logFailure(ctx, err, "Failed to save purchase request", slog.String("purchase_request_id", id))
		return dto.PurchaseRequestView{}, err
	}
	if err := scope.TrackSaved(pr); err != nil {
		return dto.PurchaseRequestView{}, err
	}
	return dto.ToPurchaseRequestView(pr), nil
}

func (s *PurchaseRequestService) edit(ctx context.Context, p dto.EditPurchaseRequest) (dto.PurchaseRequestView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, pr *domain.PurchaseRequest) error {
		return pr.Edit(actor, p.Title, p.Description, dto.ToLineItems(p.Items), p.ExpectedVersion, s.Clock.Now())
	})
}

func (s *PurchaseRequestService) submit(ctx context.Context, p dto.EntityRef) (dto.PurchaseRequestView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, pr *domain.PurchaseRequest) error {
		flow, err := s.flows.BuildFlow(ctx, pr.TenantID(), pr.RequesterID(), pr.TotalAmount())
		if err != nil {
			return err
		}
		return pr.Submit(actor, flow, s.Clock.Now())
	})
}

func (s *PurchaseRequestService) resubmit(ctx context.Context, p dto.EntityRef) (dto.PurchaseRequestView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, pr *domain.PurchaseRequest) error {
		flow, err := s.flows.BuildFlow(ctx, pr.TenantID(), pr.RequesterID(), pr.TotalAmount())
		if err != nil {
			return err
		}
		return pr.Resubmit(actor, flow, s.Clock.Now())
	})
}

func (s *PurchaseRequestService) approve(ctx context.Context, p dto.ApproveRequest) (dto.PurchaseRequestView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, pr *domain.PurchaseRequest) error {
		return pr.Approve(actor, p.Comment, s.Clock.Now())
	})
}

func (s *PurchaseRequestService) reject(ctx context.Context, p dto.ReasonRequest) (dto.PurchaseRequestView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, pr *domain.PurchaseRequest) error {
		return pr.Reject(actor, p.Reason, s.Clock.Now())
	})
}

func (s *PurchaseRequestService) sendBack(ctx context.Context, p dto.ReasonRequest) (dto.PurchaseRequestView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, pr *domain.PurchaseRequest) error {
		return pr.Return(actor, p.Reason, s.Clock.Now())
	})
}

func (s *PurchaseRequestService) cancel(ctx context.Context, p dto.CancelRequest) (dto.PurchaseRequestView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, pr *domain.PurchaseRequest) error {
		return pr.Cancel(actor, p.Reason, s.Clock.Now())
	})
}

func (s *PurchaseRequestService) get(ctx context.Context, p dto.EntityRef) (dto.PurchaseRequestView, error) {
	pr, err := s.repo.FindPurchaseRequestByID(ctx, p.ID)
	if err != nil {
		s.logFailure(ctx, err, "Failed to load purchase request", slog.String("purchase_request_id", p.ID))
		return dto.PurchaseRequestView{}, err
	}
	return dto.ToPurchaseRequestView(pr), nil
}
