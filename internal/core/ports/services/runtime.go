package services

import (
	"context"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// ActorProvider returns the authenticated actor of the current call.
type ActorProvider interface {
	CurrentActor(ctx context.Context) (domain.Actor, bool)
}

// Clock supplies the current time. Implementations return UTC.
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies identifiers for new aggregates and outbox rows.
type IDGenerator interface {
	NewID() string
}
