package repositories

import (
	"context"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// PurchaseRequestReader defines read operations for purchase requests.
type PurchaseRequestReader interface {
	// FindPurchaseRequestByID loads the whole aggregate (items, approval steps, decisions).
	FindPurchaseRequestByID(ctx context.Context, id string) (*domain.PurchaseRequest, error)
}

// PurchaseRequestWriter defines write operations for purchase requests.
type PurchaseRequestWriter interface {
	// SavePurchaseRequest inserts a new aggregate (version 0) or updates an existing one
	// when its stored version still equals pr.Version(). On success the aggregate is marked
	// with the new version. A stale version yields apperrors.ErrConcurrencyConflict.
	SavePurchaseRequest(ctx context.Context, pr *domain.PurchaseRequest) error
}

// PurchaseRequestRepositoryFacade combines all purchase request repository operations.
type PurchaseRequestRepositoryFacade interface {
	PurchaseRequestReader
	PurchaseRequestWriter
}
