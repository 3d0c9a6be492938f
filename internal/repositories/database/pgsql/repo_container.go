package pgsql

import (
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every port to the pool. All repositories share the
// transaction WithinTx puts in the context.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:           &BaseRepository{Pool: dbPool},
		PurchaseRequestRepo: newPgxPurchaseRequestRepository(dbPool),
		ApplicationRepo:     newPgxApplicationRepository(dbPool),
		WorkflowRepo:        newPgxWorkflowDefinitionRepository(dbPool),
		OutboxRepo:          newPgxOutboxRepository(dbPool),
		IdempotencyRepo:     newPgxIdempotencyRepository(dbPool),
		AuditRepo:           newPgxAuditLogRepository(dbPool),
		UserDirectory:       newPgxUserDirectoryRepository(dbPool),
	}
}
