package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	TxManager           TransactionManager
	PurchaseRequestRepo PurchaseRequestRepositoryFacade
	ApplicationRepo     ApplicationRepositoryFacade
	WorkflowRepo        WorkflowDefinitionRepositoryFacade
	OutboxRepo          OutboxRepositoryFacade
	IdempotencyRepo     IdempotencyRepositoryFacade
	AuditRepo           AuditLogRepositoryFacade
	UserDirectory       UserDirectoryFacade
}
