package repositories

import (
	"context"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// IdempotencyReader looks up stored command results.
type IdempotencyReader interface {
	// FindIdempotencyRecord returns apperrors.ErrNotFound when no record exists.
	FindIdempotencyRecord(ctx context.Context, commandType, key string) (*domain.IdempotencyRecord, error)
}

// IdempotencyWriter stores command results.
type IdempotencyWriter interface {
	// SaveIdempotencyRecord fails with apperrors.ErrDuplicate when (commandType, key) exists.
	SaveIdempotencyRecord(ctx context.Context, rec domain.IdempotencyRecord) error
}

// IdempotencyRepositoryFacade combines all idempotency repository operations.
type IdempotencyRepositoryFacade interface {
	IdempotencyReader
	IdempotencyWriter
}
