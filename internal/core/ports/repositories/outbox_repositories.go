package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// OutboxWriter appends messages inside the unit of work of the mutation that raised them.
type OutboxWriter interface {
	AppendOutboxMessages(ctx context.Context, msgs []domain.OutboxMessage) error
}

// OutboxReader defines the relay's read side.
type OutboxReader interface {
	// FindUnprocessedOutboxMessages returns up to limit rows without processedAtUtc,
	// oldest occurredAtUtc first. maxRetries > 0 skips rows whose retryCount reached it.
	FindUnprocessedOutboxMessages(ctx context.Context, limit, maxRetries int) ([]domain.OutboxMessage, error)

	// ListOutboxMessages returns every row of the given type, processed or not.
	ListOutboxMessages(ctx context.Context, eventType string) ([]domain.OutboxMessage, error)
}

// OutboxStatusWriter records delivery outcomes.
type OutboxStatusWriter interface {
	// MarkOutboxMessageProcessed sets processedAtUtc if it is still unset and reports
	// whether this call set it.
	MarkOutboxMessageProcessed(ctx context.Context, id string, at time.Time) (bool, error)

	// MarkOutboxMessageFailed records the delivery error and increments retryCount.
	MarkOutboxMessageFailed(ctx context.Context, id string, deliveryErr string) error
}

// OutboxRepositoryFacade combines all outbox repository operations.
type OutboxRepositoryFacade interface {
	OutboxWriter
	OutboxReader
	OutboxStatusWriter
}

// OutboxStoreFactory hands the relay a short-lived outbox store for one poll cycle. The
// returned release func must be called when the cycle ends.
type OutboxStoreFactory func(ctx context.Context) (OutboxRepositoryFacade, func(), error)
