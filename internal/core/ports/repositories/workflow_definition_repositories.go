package repositories

import (
	"context"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// WorkflowDefinitionReader defines read operations for workflow definitions.
type WorkflowDefinitionReader interface {
	// FindActiveWorkflowDefinition returns apperrors.ErrNotFound when no definition is
	// active for the tenant and application type.
	FindActiveWorkflowDefinition(ctx context.Context, tenantID, applicationType string) (*domain.WorkflowDefinition, error)
}

// WorkflowDefinitionWriter defines write operations for workflow definitions.
type WorkflowDefinitionWriter interface {
	// SaveWorkflowDefinition persists the definition. Activating a second definition for
	// the same tenant and type fails with apperrors.ErrDuplicate.
	SaveWorkflowDefinition(ctx context.Context, def *domain.WorkflowDefinition) error
}

// WorkflowDefinitionRepositoryFacade combines all workflow definition repository operations.
type WorkflowDefinitionRepositoryFacade interface {
	WorkflowDefinitionReader
	WorkflowDefinitionWriter
}
