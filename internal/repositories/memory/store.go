// Package memory is an in-process store implementing every repository port. Writes made
// inside WithinTx are staged and applied at commit, where aggregate versions and unique
// keys are validated under a single lock, all or nothing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
)

type txKey struct{}

type stagedRow[S any] struct {
	state    S
	expected int64 // version the row had when first saved in this transaction
}

type table[S any] struct {
	entity  string
	rows    map[string]S
	version func(S) int64
}

func newTable[S any](entity string, version func(S) int64) *table[S] {
	return &table[S]{entity: entity, rows: make(map[string]S), version: version}
}

func (t *table[S]) check(id string, expected int64) error {
	var current int64
	if row, ok := t.rows[id]; ok {
		current = t.version(row)
	}
	if current != expected {
		return fmt.Errorf("%w: %s %s is at version %d, write was based on version %d",
			apperrors.ErrConcurrencyConflict, t.entity, id, current, expected)
	}
	return nil
}

// stage records a write of state (already carrying its new version) in the transaction.
func (t *table[S]) stage(staged map[string]*stagedRow[S], id string, state S) error {
	newVersion := t.version(state)
	if row, ok := staged[id]; ok {
		if t.version(row.state) != newVersion-1 {
			return fmt.Errorf("%w: %s %s was saved twice from the same version", apperrors.ErrConcurrencyConflict, t.entity, id)
		}
		row.state = state
		return nil
	}
	staged[id] = &stagedRow[S]{state: state, expected: newVersion - 1}
	return nil
}

type memTx struct {
	purchaseRequests map[string]*stagedRow[domain.PurchaseRequestState]
	applications     map[string]*stagedRow[domain.ApplicationState]
	workflows        map[string]*stagedRow[domain.WorkflowDefinitionState]
	outbox           []domain.OutboxMessage
	idempotency      []domain.IdempotencyRecord
	audit            []domain.AuditLogEntry
}

func newMemTx() *memTx {
	return &memTx{
		purchaseRequests: make(map[string]*stagedRow[domain.PurchaseRequestState]),
		applications:     make(map[string]*stagedRow[domain.ApplicationState]),
		workflows:        make(map[string]*stagedRow[domain.WorkflowDefinitionState]),
	}
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

type idempotencyKey struct {
	commandType string
	key         string
}

// Store is safe for concurrent use.
type Store struct {
	mu               sync.Mutex
	purchaseRequests *table[domain.PurchaseRequestState]
	applications     *table[domain.ApplicationState]
	workflows        *table[domain.WorkflowDefinitionState]
	outbox           []domain.OutboxMessage
	idempotency      map[idempotencyKey]domain.IdempotencyRecord
	audit            []domain.AuditLogEntry
	roles            map[string]domain.UserRole
	beforeCommit     func()
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		purchaseRequests: newTable(domain.EntityPurchaseRequest, func(s domain.PurchaseRequestState) int64 { return s.Version }),
		applications:     newTable(domain.EntityApplication, func(s domain.ApplicationState) int64 { return s.Version }),
		workflows:        newTable(domain.EntityWorkflowDefinition, func(s domain.WorkflowDefinitionState) int64 { return s.Version }),
		idempotency:      make(map[idempotencyKey]domain.IdempotencyRecord),
		roles:            make(map[string]domain.UserRole),
	}
}

// NewRepositoryProvider exposes a store through every repository port.
func NewRepositoryProvider(s *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:           s,
		PurchaseRequestRepo: s,
		ApplicationRepo:     s,
		WorkflowRepo:        s,
		OutboxRepo:          s,
		IdempotencyRepo:     s,
		AuditRepo:           s,
		UserDirectory:       s,
	}
}

var (
	_ portsrepo.TransactionManager                 = (*Store)(nil)
	_ portsrepo.PurchaseRequestRepositoryFacade    = (*Store)(nil)
	_ portsrepo.ApplicationRepositoryFacade        = (*Store)(nil)
	_ portsrepo.WorkflowDefinitionRepositoryFacade = (*Store)(nil)
	_ portsrepo.OutboxRepositoryFacade             = (*Store)(nil)
	_ portsrepo.IdempotencyRepositoryFacade        = (*Store)(nil)
	_ portsrepo.AuditLogRepositoryFacade           = (*Store)(nil)
	_ portsrepo.UserDirectoryFacade                = (*Store)(nil)
)

// SetBeforeCommitHook installs fn to run right before a transaction's writes are
// validated and applied. Tests use it to line up concurrent commits.
func (s *Store) SetBeforeCommitHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeCommit = fn
}

// WithinTx implements portsrepo.TransactionManager.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	tx := newMemTx()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	hook := s.beforeCommit
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, row := range tx.purchaseRequests {
		if err := s.purchaseRequests.check(id, row.expected); err != nil {
			return err
		}
	}
	for id, row := range tx.applications {
		if err := s.applications.check(id, row.expected); err != nil {
			return err
		}
	}
	for id, row := range tx.workflows {
		if err := s.workflows.check(id, row.expected); err != nil {
			return err
		}
	}
	if err := s.checkSingleActiveWorkflow(tx); err != nil {
		return err
	}
	seen := make(map[idempotencyKey]struct{}, len(tx.idempotency))
	for _, rec := range tx.idempotency {
		k := idempotencyKey{rec.CommandType, rec.Key}
		_, committed := s.idempotency[k]
		_, staged := seen[k]
		if committed || staged {
			return fmt.Errorf("%w: idempotency record %s/%s", apperrors.ErrDuplicate, rec.CommandType, rec.Key)
		}
		seen[k] = struct{}{}
	}

	for id, row := range tx.purchaseRequests {
		s.purchaseRequests.rows[id] = row.state
	}
	for id, row := range tx.applications {
		s.applications.rows[id] = row.state
	}
	for id, row := range tx.workflows {
		s.workflows.rows[id] = row.state
	}
	s.outbox = append(s.outbox, tx.outbox...)
	for _, rec := range tx.idempotency {
		s.idempotency[idempotencyKey{rec.CommandType, rec.Key}] = rec
	}
	s.audit = append(s.audit, tx.audit...)
	return nil
}

func (s *Store) checkSingleActiveWorkflow(tx *memTx) error {
	if len(tx.workflows) == 0 {
		return nil
	}
	merged := make(map[string]domain.WorkflowDefinitionState, len(s.workflows.rows)+len(tx.workflows))
	for id, row := range s.workflows.rows {
		merged[id] = row
	}
	for id, row := range tx.workflows {
		merged[id] = row.state
	}
	active := make(map[string]string)
	for id, def := range merged {
		if !def.IsActive {
			continue
		}
		k := def.TenantID + "/" + def.ApplicationType
		if other, ok := active[k]; ok {
			return fmt.Errorf("%w: workflow definitions %s and %s are both active for %s", apperrors.ErrDuplicate, other, id, k)
		}
		active[k] = id
	}
	return nil
}

// OutboxStoreFactory serves every relay cycle from s.
func (s *Store) OutboxStoreFactory() portsrepo.OutboxStoreFactory {
	return func(context.Context) (portsrepo.OutboxRepositoryFacade, func(), error) {
		return s, func() {}, nil
	}
}
