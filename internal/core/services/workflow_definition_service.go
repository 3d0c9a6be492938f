package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/core/pipeline"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/SscSPs/procureflow/internal/dto"
)

const (
	OpWorkflowDefinitionDefine = "workflow_definition.define"
	OpWorkflowDefinitionGet    = "workflow_definition.get"
)

// WorkflowDefinitionService maintains the active workflow definition per application type.
type WorkflowDefinitionService struct {
	BaseService
	repo portsrepo.WorkflowDefinitionRepositoryFacade
}

func NewWorkflowDefinitionService(base BaseService, repo portsrepo.WorkflowDefinitionRepositoryFacade) *WorkflowDefinitionService {
	return &WorkflowDefinitionService{BaseService: base, repo: repo}
}

func (s *WorkflowDefinitionService) Register(reg *pipeline.Registry) {
	pipeline.MustRegister(reg, pipeline.Handler[dto.DefineWorkflow, dto.WorkflowDefinitionView]{
		Type: OpWorkflowDefinitionDefine,
		Kind: pipeline.KindCommand,
		Authorize: func(_ context.Context, actor domain.Actor, _ dto.DefineWorkflow) (domain.BoundaryDecision, error) {
			return domain.CanDefineWorkflow(actor), nil
		},
		Handle: s.define,
	})
	pipeline.MustRegister(reg, pipeline.Handler[dto.GetWorkflow, dto.WorkflowDefinitionView]{
		Type: OpWorkflowDefinitionGet,
		Kind: pipeline.KindQuery,
		Authorize: func(_ context.Context, actor domain.Actor, _ dto.GetWorkflow) (domain.BoundaryDecision, error) {
			return requireTenant(actor), nil
		},
		CacheKey: func(p dto.GetWorkflow) string { return p.ApplicationType },
		Handle:   s.get,
	})
}

// define retires the current definition of the type, if any, and activates the new one.
func (s *WorkflowDefinitionService) define(ctx context.Context, p dto.DefineWorkflow) (dto.WorkflowDefinitionView, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return dto.WorkflowDefinitionView{}, err
	}
	now := s.Clock.Now()
	scope := pipeline.ScopeFrom(ctx)

	current, err := s.repo.FindActiveWorkflowDefinition(ctx, actor.TenantID, p.ApplicationType)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
	case err != nil:
		s.logFailure(ctx, err, "Failed to load active workflow definition", slog.String("application_type", p.ApplicationType))
		return dto.WorkflowDefinitionView{}, err
	default:
		if err := scope.TrackLoaded(current); err != nil {
			return dto.WorkflowDefinitionView{}, err
		}
		current.Deactivate(actor, now)
		if err := s.repo.SaveWorkflowDefinition(ctx, current); err != nil {
			s.logFailure(ctx, err, "Failed to retire workflow definition", slog.String("workflow_definition_id", current.ID()))
			return dto.WorkflowDefinitionView{}, err
		}
		if err := scope.TrackSaved(current); err != nil {
			return dto.WorkflowDefinitionView{}, err
		}
	}

	def, err := domain.NewWorkflowDefinition(s.IDs.NewID(), actor, p.ApplicationType, p.Name, dto.ToWorkflowSteps(p.Steps), now)
	if err != nil {
		return dto.WorkflowDefinitionView{}, err
	}
	def.Activate(actor, now)
	if err := s.repo.SaveWorkflowDefinition(ctx, def); err != nil {
		s.logFailure(ctx, err, "Failed to save workflow definition", slog.String("workflow_definition_id", def.ID()))
		return dto.WorkflowDefinitionView{}, err
	}
	if err := scope.TrackSaved(def); err != nil {
		return dto.WorkflowDefinitionView{}, err
	}
	s.LogInfo(ctx, "Workflow definition activated",
		slog.String("workflow_definition_id", def.ID()),
		slog.String("application_type", p.ApplicationType),
		slog.Int("steps", def.StepCount()))
	return dto.ToWorkflowDefinitionView(def), nil
}

func (s *WorkflowDefinitionService) get(ctx context.Context, p dto.GetWorkflow) (dto.WorkflowDefinitionView, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return dto.WorkflowDefinitionView{}, err
	}
	def, err := s.repo.FindActiveWorkflowDefinition(ctx, actor.TenantID, p.ApplicationType)
	if err != nil {
		s.logFailure(ctx, err, "Failed to load active workflow definition", slog.String("application_type", p.ApplicationType))
		return dto.WorkflowDefinitionView{}, err
	}
	return dto.ToWorkflowDefinitionView(def), nil
}
