package repositories

import (
	"context"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// ApplicationReader defines read operations for approval applications.
type ApplicationReader interface {
	FindApplicationByID(ctx context.Context, id string) (*domain.ApprovalApplication, error)
}

// ApplicationWriter defines write operations for approval applications. Versioning follows
// PurchaseRequestWriter.
type ApplicationWriter interface {
	SaveApplication(ctx context.Context, app *domain.ApprovalApplication) error
}

// ApplicationRepositoryFacade combines all application repository operations.
type ApplicationRepositoryFacade interface {
	ApplicationReader
	ApplicationWriter
}
