package repositories

import (
	"context"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// AuditLogWriter appends audit entries. Entries are never updated or deleted.
type AuditLogWriter interface {
	AppendAuditLogEntries(ctx context.Context, entries []domain.AuditLogEntry) error
}

// AuditLogReader lists audit entries of one entity, oldest first.
type AuditLogReader interface {
	ListAuditLogEntries(ctx context.Context, entityType, entityID string) ([]domain.AuditLogEntry, error)
}

// AuditLogRepositoryFacade combines all audit log repository operations.
type AuditLogRepositoryFacade interface {
	AuditLogWriter
	AuditLogReader
}
