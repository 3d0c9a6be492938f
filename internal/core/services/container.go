package services

import (
	"fmt"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/core/pipeline"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Options carries the runtime collaborators and tunables of the container.
type Options struct {
	Actors portssvc.ActorProvider
	Clock  portssvc.Clock
	IDs    portssvc.IDGenerator

	Policy         domain.ApprovalPolicy
	CacheSize      int
	CacheTTL       time.Duration
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Container holds the registered operations, the executor running them and the pre-flight
// boundary checker.
type Container struct {
	Registry   *pipeline.Registry
	Executor   *pipeline.Executor
	Boundaries portssvc.BoundaryCheckerSvc
}

// NewContainer creates a new service container with properly initialized dependencies
func NewContainer(repos *portsrepo.RepositoryProvider, opts Options) (*Container, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("approval policy: %w", err)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}

	base := BaseService{Actors: opts.Actors, Clock: opts.Clock, IDs: opts.IDs}

	prBoundary := NewPurchaseRequestBoundary(repos.PurchaseRequestRepo)
	appBoundary := NewApplicationBoundary(repos.ApplicationRepo, repos.WorkflowRepo, repos.UserDirectory)
	flows := NewApprovalFlowBuilder(base, repos.UserDirectory, opts.Policy)

	registry := pipeline.NewRegistry()
	NewPurchaseRequestService(base, repos.PurchaseRequestRepo, prBoundary, flows).Register(registry)
	NewApplicationService(base, repos.ApplicationRepo, repos.WorkflowRepo, repos.UserDirectory, appBoundary).Register(registry)
	NewWorkflowDefinitionService(base, repos.WorkflowRepo).Register(registry)
	NewAuditService(base, repos.AuditRepo).Register(registry)

	metrics, err := pipeline.NewMetricsBehavior(opts.TracerProvider, opts.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create command metrics: %w", err)
	}
	cache := pipeline.NewCachingBehavior(opts.CacheSize, opts.CacheTTL)

	executor := pipeline.NewExecutor(registry, opts.Actors,
		metrics,
		pipeline.NewValidationBehavior(),
		pipeline.NewAuthorizationBehavior(),
		pipeline.NewIdempotencyBehavior(repos.IdempotencyRepo),
		cache,
		pipeline.NewTransactionBehavior(repos.TxManager, repos.OutboxRepo, repos.IdempotencyRepo, opts.IDs, opts.Clock,
			pipeline.WithCommitHook(cache.Purge)),
		pipeline.NewAuditLogBehavior(repos.AuditRepo, opts.IDs, opts.Clock),
		pipeline.NewLoggingBehavior(),
	)

	return &Container{
		Registry:   registry,
		Executor:   executor,
		Boundaries: NewBoundaryChecker(prBoundary, appBoundary),
	}, nil
}
