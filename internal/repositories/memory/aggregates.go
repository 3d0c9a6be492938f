package memory

import (
	"context"
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
)

// lookup reads id as the calling transaction sees it.
func lookup[S any](s *Store, t *table[S], staged map[string]*stagedRow[S], id string) (S, bool) {
	if row, ok := staged[id]; ok {
		return row.state, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := t.rows[id]
	return row, ok
}

// save stages state inside a transaction, or applies it immediately after a version check.
func save[S any](s *Store, t *table[S], staged map[string]*stagedRow[S], id string, state S) error {
	if staged != nil {
		return t.stage(staged, id, state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := t.check(id, t.version(state)-1); err != nil {
		return err
	}
	t.rows[id] = state
	return nil
}

func (s *Store) FindPurchaseRequestByID(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
	var staged map[string]*stagedRow[domain.PurchaseRequestState]
	if tx := txFrom(ctx); tx != nil {
		staged = tx.purchaseRequests
	}
	state, ok := lookup(s, s.purchaseRequests, staged, id)
	if !ok {
		return nil, fmt.Errorf("%w: purchase request %s", apperrors.ErrNotFound, id)
	}
	return domain.RestorePurchaseRequest(state)
}

func (s *Store) SavePurchaseRequest(ctx context.Context, pr *domain.PurchaseRequest) error {
	var staged map[string]*stagedRow[domain.PurchaseRequestState]
	if tx := txFrom(ctx); tx != nil {
		staged = tx.purchaseRequests
	}
	state := pr.State()
	state.Version = pr.Version() + 1
	if err := save(s, s.purchaseRequests, staged, pr.ID(), state); err != nil {
		return err
	}
	pr.MarkPersisted(state.Version)
	return nil
}

func (s *Store) FindApplicationByID(ctx context.Context, id string) (*domain.ApprovalApplication, error) {
	var staged map[string]*stagedRow[domain.ApplicationState]
	if tx := txFrom(ctx); tx != nil {
		staged = tx.applications
	}
	state, ok := lookup(s, s.applications, staged, id)
	if !ok {
		return nil, fmt.Errorf("%w: application %s", apperrors.ErrNotFound, id)
	}
	return domain.RestoreApprovalApplication(state), nil
}

func (s *Store) SaveApplication(ctx context.Context, app *domain.ApprovalApplication) error {
	var staged map[string]*stagedRow[domain.ApplicationState]
	if tx := txFrom(ctx); tx != nil {
		staged = tx.applications
	}
	state := app.State()
	state.Version = app.Version() + 1
	if err := save(s, s.applications, staged, app.ID(), state); err != nil {
		return err
	}
	app.MarkPersisted(state.Version)
	return nil
}

func (s *Store) FindActiveWorkflowDefinition(ctx context.Context, tenantID, applicationType string) (*domain.WorkflowDefinition, error) {
	matches := func(def domain.WorkflowDefinitionState) bool {
		return def.IsActive && def.TenantID == tenantID && def.ApplicationType == applicationType
	}

	tx := txFrom(ctx)
	if tx != nil {
		for _, row := range tx.workflows {
			if matches(row.state) {
				return domain.RestoreWorkflowDefinition(row.state), nil
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, def := range s.workflows.rows {
		if tx != nil {
			if _, shadowed := tx.workflows[id]; shadowed {
				continue
			}
		}
		if matches(def) {
			return domain.RestoreWorkflowDefinition(def), nil
		}
	}
	return nil, fmt.Errorf("%w: no active workflow definition for %s", apperrors.ErrNotFound, applicationType)
}

func (s *Store) SaveWorkflowDefinition(ctx context.Context, def *domain.WorkflowDefinition) error {
	state := def.State()
	state.Version = def.Version() + 1

	if tx := txFrom(ctx); tx != nil {
		if err := s.workflows.stage(tx.workflows, def.ID(), state); err != nil {
			return err
		}
		def.MarkPersisted(state.Version)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.workflows.check(def.ID(), def.Version()); err != nil {
		return err
	}
	if err := s.checkSingleActiveWorkflow(&memTx{workflows: map[string]*stagedRow[domain.WorkflowDefinitionState]{
		def.ID(): {state: state, expected: def.Version()},
	}}); err != nil {
		return err
	}
	s.workflows.rows[def.ID()] = state
	def.MarkPersisted(state.Version)
	return nil
}
