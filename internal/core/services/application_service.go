package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/core/pipeline"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/SscSPs/procureflow/internal/dto"
)

// Application operation types.
const (
	OpApplicationCreate   = "application.create"
	OpApplicationEdit     = "application.edit"
	OpApplicationSubmit   = "application.submit"
	OpApplicationApprove  = "application.approve"
	OpApplicationReject   = "application.reject"
	OpApplicationReturn   = "application.return"
	OpApplicationResubmit = "application.resubmit"
	OpApplicationCancel   = "application.cancel"
	OpApplicationGet      = "application.get"
)

// ApplicationService owns the generic workflow operations. The required role of a step is
// read from the active definition each time a decision is made.
type ApplicationService struct {
	BaseService
	repo      portsrepo.ApplicationRepositoryFacade
	workflows portsrepo.WorkflowDefinitionReader
	directory portsrepo.UserDirectoryReader
	boundary  portssvc.ApplicationBoundarySvc
}

func NewApplicationService(
	base BaseService,
	repo portsrepo.ApplicationRepositoryFacade,
	workflows portsrepo.WorkflowDefinitionReader,
	directory portsrepo.UserDirectoryReader,
	boundary portssvc.ApplicationBoundarySvc,
) *ApplicationService {
	return &ApplicationService{BaseService: base, repo: repo, workflows: workflows, directory: directory, boundary: boundary}
}

// Register adds every application operation to reg.
func (s *ApplicationService) Register(reg *pipeline.Registry) {
	pipeline.MustRegister(reg, pipeline.Handler[dto.CreateApplication, dto.ApplicationView]{
		Type: OpApplicationCreate,
		Kind: pipeline.KindCommand,
		Authorize: func(_ context.Context, actor domain.Actor, _ dto.CreateApplication) (domain.BoundaryDecision, error) {
			return requireTenant(actor), nil
		},
		Handle: s.create,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.EditApplication, dto.ApplicationView]{
		Type: OpApplicationEdit,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.EditApplication) (domain.BoundaryDecision, error) {
			return s.boundary.CanEdit(ctx, actor, p.ID)
		},
		Handle: s.edit,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.EntityRef, dto.ApplicationView]{
		Type: OpApplicationSubmit,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.EntityRef) (domain.BoundaryDecision, error) {
			return s.boundary.CanSubmit(ctx, actor, p.ID)
		},
		Handle: s.submit,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.ApproveRequest, dto.ApplicationView]{
		Type: OpApplicationApprove,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.ApproveRequest) (domain.BoundaryDecision, error) {
			return s.boundary.CanApprove(ctx, actor, p.ID)
		},
		Handle: s.approve,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.ReasonRequest, dto.ApplicationView]{
		Type: OpApplicationReject,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.ReasonRequest) (domain.BoundaryDecision, error) {
			return s.boundary.CanReject(ctx, actor, p.ID)
		},
		Handle: s.reject,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.ReasonRequest, dto.ApplicationView]{
		Type: OpApplicationReturn,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.ReasonRequest) (domain.BoundaryDecision, error) {
			return s.boundary.CanReturn(ctx, actor, p.ID)
		},
		Handle: s.sendBack,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.EntityRef, dto.ApplicationView]{
		Type: OpApplicationResubmit,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.EntityRef) (domain.BoundaryDecision, error) {
			return s.boundary.CanResubmit(ctx, actor, p.ID)
		},
		Handle: s.resubmit,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.CancelRequest, dto.ApplicationView]{
		Type: OpApplicationCancel,
		Kind: pipeline.KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.CancelRequest) (domain.BoundaryDecision, error) {
			return s.boundary.CanCancel(ctx, actor, p.ID)
		},
		Handle: s.cancel,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.EntityRef, dto.ApplicationView]{
		Type: OpApplicationGet,
		Kind: pipeline.KindQuery,
		Authorize: func(ctx context.Context, actor domain.Actor, p dto.EntityRef) (domain.BoundaryDecision, error) {
			return s.boundary.CanView(ctx, actor, p.ID)
		},
		CacheKey: func(p dto.EntityRef) string { return p.ID },
		Handle:   s.get,
	})
}

func (s *ApplicationService) create(ctx context.Context, p dto.CreateApplication) (dto.ApplicationView, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return dto.ApplicationView{}, err
	}
	app, err := domain.NewApprovalApplication(s.IDs.NewID(), actor, p.ApplicationType, p.Title, p.Content, s.Clock.Now())
	if err != nil {
		return dto.ApplicationView{}, err
	}
	if err := s.repo.SaveApplication(ctx, app); err != nil {
		s.logFailure(ctx, err, "Failed to save application", slog.String("application_id", app.ID()))
		return dto.ApplicationView{}, err
	}
	if err := pipeline.ScopeFrom(ctx).TrackSaved(app); err != nil {
		return dto.ApplicationView{}, err
	}
	s.LogInfo(ctx, "Application created",
		slog.String("application_id", app.ID()),
		slog.String("application_type", app.ApplicationType()))
	return dto.ToApplicationView(app), nil
}

func (s *ApplicationService) mutate(ctx context.Context, id string, fn func(actor domain.Actor, app *domain.ApprovalApplication) error) (dto.ApplicationView, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return dto.ApplicationView{}, err
	}
	app, err := s.repo.FindApplicationByID(ctx, id)
	if err != nil {
		s.logFailure(ctx, err, "Failed to load application", slog.String("application_id", id))
		return dto.ApplicationView{}, err
	}
	scope := pipeline.ScopeFrom(ctx)
	if err := scope.TrackLoaded(app); err != nil {
		return dto.ApplicationView{}, err
	}
	if err := fn(actor, app); err != nil {
		return dto.ApplicationView{}, err
	}
	if err := s.repo.SaveApplication(ctx, app); err != nil {
		s.logFailure(ctx, err, "Failed to save application", slog.String("application_id", id))
		return dto.ApplicationView{}, err
	}
	if err := scope.TrackSaved(app); err != nil {
		return dto.ApplicationView{}, err
	}
	return dto.ToApplicationView(app), nil
}

// activeDefinition returns nil when the type has no active definition. The aggregate turns
// that into a business rule violation.
func (s *ApplicationService) activeDefinition(ctx context.Context, app *domain.ApprovalApplication) (*domain.WorkflowDefinition, error) {
	def, err := s.workflows.FindActiveWorkflowDefinition(ctx, app.TenantID(), app.ApplicationType())
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return def, err
}

func (s *ApplicationService) edit(ctx context.Context, p dto.EditApplication) (dto.ApplicationView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, app *domain.ApprovalApplication) error {
		return app.Edit(actor, p.Title, p.Content, p.ExpectedVersion, s.Clock.Now())
	})
}

func (s *ApplicationService) submit(ctx context.Context, p dto.EntityRef) (dto.ApplicationView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, app *domain.ApprovalApplication) error {
		def, err := s.activeDefinition(ctx, app)
		if err != nil {
			return err
		}
		return app.Submit(actor, def, s.Clock.Now())
	})
}

func (s *ApplicationService) resubmit(ctx context.Context, p dto.EntityRef) (dto.ApplicationView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, app *domain.ApprovalApplication) error {
		def, err := s.activeDefinition(ctx, app)
		if err != nil {
			return err
		}
		return app.Resubmit(actor, def, s.Clock.Now())
	})
}

func (s *ApplicationService) approve(ctx context.Context, p dto.ApproveRequest) (dto.ApplicationView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, app *domain.ApprovalApplication) error {
		def, roles, err := resolveStepContext(ctx, s.workflows, s.directory, actor, app)
		if err != nil {
			return err
		}
		return app.Approve(actor, def, roles, p.Comment, s.Clock.Now())
	})
}

func (s *ApplicationService) reject(ctx context.Context, p dto.ReasonRequest) (dto.ApplicationView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, app *domain.ApprovalApplication) error {
		def, roles, err := resolveStepContext(ctx, s.workflows, s.directory, actor, app)
		if err != nil {
			return err
		}
		return app.Reject(actor, def, roles, p.Reason, s.Clock.Now())
	})
}

func (s *ApplicationService) sendBack(ctx context.Context, p dto.ReasonRequest) (dto.ApplicationView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, app *domain.ApprovalApplication) error {
		def, roles, err := resolveStepContext(ctx, s.workflows, s.directory, actor, app)
		if err != nil {
			return err
		}
		return app.Return(actor, def, roles, p.Reason, s.Clock.Now())
	})
}

func (s *ApplicationService) cancel(ctx context.Context, p dto.CancelRequest) (dto.ApplicationView, error) {
	return s.mutate(ctx, p.ID, func(actor domain.Actor, app *domain.ApprovalApplication) error {
		return app.Cancel(actor, p.Reason, s.Clock.Now())
	})
}

func (s *ApplicationService) get(ctx context.Context, p dto.EntityRef) (dto.ApplicationView, error) {
	app, err := s.repo.FindApplicationByID(ctx, p.ID)
	if err != nil {
		s.logFailure(ctx, err, "Failed to load application", slog.String("application_id", p.ID))
		return dto.ApplicationView{}, err
	}
	return dto.ToApplicationView(app), nil
}
