package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	requester = domain.Actor{UserID: "u-req", UserName: "Requester", TenantID: "t-1"}
)

func lineItems() []domain.LineItem {
	return []domain.LineItem{
		{Description: "Laptop", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(1500)},
	}
}

func newDraft(t *testing.T, id string) *domain.PurchaseRequest {
	t.Helper()
	pr, err := domain.NewPurchaseRequest(id, requester, "Laptops", "", lineItems(), testNow)
	require.NoError(t, err)
	return pr
}

func TestStore_SaveAssignsVersions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	pr := newDraft(t, "pr-1")

	require.NoError(t, s.SavePurchaseRequest(ctx, pr))
	assert.Equal(t, int64(1), pr.Version())

	require.NoError(t, pr.Edit(requester, "Laptops v2", "", lineItems(), nil, testNow))
	require.NoError(t, s.SavePurchaseRequest(ctx, pr))
	assert.Equal(t, int64(2), pr.Version())

	loaded, err := s.FindPurchaseRequestByID(ctx, "pr-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version())
	assert.Equal(t, "Laptops v2", loaded.State().Title)
}

func TestStore_FindMissingIsNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.FindPurchaseRequestByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = s.FindIdempotencyRecord(context.Background(), "purchase_request.create", "k")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_StaleWriteConflictsAtCommit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SavePurchaseRequest(ctx, newDraft(t, "pr-1")))

	err := s.WithinTx(ctx, func(txCtx context.Context) error {
		mine, err := s.FindPurchaseRequestByID(txCtx, "pr-1")
		require.NoError(t, err)

		// A concurrent writer commits first.
		theirs, err := s.FindPurchaseRequestByID(ctx, "pr-1")
		require.NoError(t, err)
		require.NoError(t, theirs.Edit(requester, "Theirs", "", lineItems(), nil, testNow))
		require.NoError(t, s.SavePurchaseRequest(ctx, theirs))

		require.NoError(t, mine.Edit(requester, "Mine", "", lineItems(), nil, testNow))
		return s.SavePurchaseRequest(txCtx, mine)
	})
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)

	loaded, err := s.FindPurchaseRequestByID(ctx, "pr-1")
	require.NoError(t, err)
	assert.Equal(t, "Theirs", loaded.State().Title)
	assert.Equal(t, int64(2), loaded.Version())
}

func TestStore_RollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.SavePurchaseRequest(txCtx, newDraft(t, "pr-1")))
		require.NoError(t, s.AppendOutboxMessages(txCtx, []domain.OutboxMessage{{ID: "m-1", Type: "X", OccurredAtUTC: testNow}}))
		require.NoError(t, s.AppendAuditLogEntries(txCtx, []domain.AuditLogEntry{{ID: "a-1", EntityType: domain.EntityPurchaseRequest, EntityID: "pr-1"}}))

		// Reads inside the transaction see its own writes.
		_, err := s.FindPurchaseRequestByID(txCtx, "pr-1")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.FindPurchaseRequestByID(ctx, "pr-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	pending, err := s.FindUnprocessedOutboxMessages(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
	entries, err := s.ListAuditLogEntries(ctx, domain.EntityPurchaseRequest, "pr-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_CancelledContextDoesNotCommit(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithinTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.SavePurchaseRequest(txCtx, newDraft(t, "pr-1")))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.FindPurchaseRequestByID(context.Background(), "pr-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_NestedWithinTxJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithinTx(ctx, func(outer context.Context) error {
		require.NoError(t, s.WithinTx(outer, func(inner context.Context) error {
			return s.SavePurchaseRequest(inner, newDraft(t, "pr-1"))
		}))
		_, err := s.FindPurchaseRequestByID(ctx, "pr-1")
		assert.ErrorIs(t, err, apperrors.ErrNotFound, "inner call must not commit on its own")
		return nil
	})
	require.NoError(t, err)

	_, err = s.FindPurchaseRequestByID(ctx, "pr-1")
	assert.NoError(t, err)
}

func TestStore_IdempotencyRecordIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rec := domain.IdempotencyRecord{Key: "k-1", CommandType: "purchase_request.create", SerializedResult: []byte(`{"id":"pr-1"}`), CreatedAt: testNow}

	require.NoError(t, s.SaveIdempotencyRecord(ctx, rec))
	assert.ErrorIs(t, s.SaveIdempotencyRecord(ctx, rec), apperrors.ErrDuplicate)

	err := s.WithinTx(ctx, func(txCtx context.Context) error {
		return s.SaveIdempotencyRecord(txCtx, rec)
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate, "duplicate is detected at commit")

	other := rec
	other.CommandType = "application.create"
	assert.NoError(t, s.SaveIdempotencyRecord(ctx, other), "keys are scoped by command type")

	found, err := s.FindIdempotencyRecord(ctx, rec.CommandType, rec.Key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"pr-1"}`, string(found.SerializedResult))
}

func TestStore_OutboxProcessedOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.AppendOutboxMessages(ctx, []domain.OutboxMessage{
		{ID: "m-2", Type: "B", OccurredAtUTC: testNow.Add(time.Minute)},
		{ID: "m-1", Type: "A", OccurredAtUTC: testNow},
	}))

	pending, err := s.FindUnprocessedOutboxMessages(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "m-1", pending[0].ID, "oldest first")

	first, err := s.MarkOutboxMessageProcessed(ctx, "m-1", testNow)
	require.NoError(t, err)
	assert.True(t, first)
	again, err := s.MarkOutboxMessageProcessed(ctx, "m-1", testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, s.MarkOutboxMessageFailed(ctx, "m-2", "broker down"))
	require.NoError(t, s.MarkOutboxMessageFailed(ctx, "m-2", "broker down"))
	pending, err = s.FindUnprocessedOutboxMessages(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, pending, "rows at the retry limit are skipped")

	all, err := s.ListOutboxMessages(ctx, "B")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].RetryCount)
	require.NotNil(t, all[0].Error)
	assert.Equal(t, "broker down", *all[0].Error)
}

func TestStore_OutboxKeepsDeliveryHistory(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.AppendOutboxMessages(ctx, []domain.OutboxMessage{
		{ID: "m-1", Type: "A", OccurredAtUTC: testNow},
	}))

	require.NoError(t, s.MarkOutboxMessageFailed(ctx, "m-1", "broker down"))
	delivered, err := s.MarkOutboxMessageProcessed(ctx, "m-1", testNow.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, delivered)

	// A stale failure report after delivery is ignored.
	require.NoError(t, s.MarkOutboxMessageFailed(ctx, "m-1", "late timeout"))

	all, err := s.ListOutboxMessages(ctx, "A")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].ProcessedAtUTC)
	require.NotNil(t, all[0].Error, "the last delivery error stays on the row")
	assert.Equal(t, "broker down", *all[0].Error)
	assert.Equal(t, 1, all[0].RetryCount)

	assert.ErrorIs(t, s.MarkOutboxMessageFailed(ctx, "missing", "x"), apperrors.ErrNotFound)
}

func TestStore_SingleActiveWorkflowPerType(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	admin := domain.Actor{UserID: "u-admin", TenantID: "t-1", Roles: []string{domain.RoleAdmin}}
	steps := []domain.WorkflowStep{{StepNumber: 1, Role: domain.RoleManager}}

	first, err := domain.NewWorkflowDefinition("wd-1", admin, "leave", "Leave v1", steps, testNow)
	require.NoError(t, err)
	first.Activate(admin, testNow)
	require.NoError(t, s.SaveWorkflowDefinition(ctx, first))

	second, err := domain.NewWorkflowDefinition("wd-2", admin, "leave", "Leave v2", steps, testNow)
	require.NoError(t, err)
	second.Activate(admin, testNow)
	assert.ErrorIs(t, s.SaveWorkflowDefinition(ctx, second), apperrors.ErrDuplicate)

	// Swapping inside one transaction is fine.
	second, err = domain.NewWorkflowDefinition("wd-2", admin, "leave", "Leave v2", steps, testNow)
	require.NoError(t, err)
	err = s.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := s.FindActiveWorkflowDefinition(txCtx, "t-1", "leave")
		require.NoError(t, err)
		current.Deactivate(admin, testNow)
		if err := s.SaveWorkflowDefinition(txCtx, current); err != nil {
			return err
		}
		second.Activate(admin, testNow)
		return s.SaveWorkflowDefinition(txCtx, second)
	})
	require.NoError(t, err)

	active, err := s.FindActiveWorkflowDefinition(ctx, "t-1", "leave")
	require.NoError(t, err)
	assert.Equal(t, "wd-2", active.ID())
}

func TestStore_UserDirectory(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.GrantRole(ctx, domain.UserRole{TenantID: "t-1", UserID: "u-b", Role: domain.RoleManager}))
	require.NoError(t, s.GrantRole(ctx, domain.UserRole{TenantID: "t-1", UserID: "u-a", Role: domain.RoleManager}))
	require.NoError(t, s.GrantRole(ctx, domain.UserRole{TenantID: "t-2", UserID: "u-c", Role: domain.RoleManager}))
	require.NoError(t, s.GrantRole(ctx, domain.UserRole{TenantID: "t-1", UserID: "u-a", Role: domain.RoleDirector}))

	managers, err := s.FindUsersByRole(ctx, "t-1", domain.RoleManager)
	require.NoError(t, err)
	require.Len(t, managers, 2)
	assert.Equal(t, "u-a", managers[0].UserID)

	roles, err := s.FindRolesByUser(ctx, "t-1", "u-a")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleDirector, domain.RoleManager}, roles)

	require.NoError(t, s.RevokeRole(ctx, "t-1", "u-a", domain.RoleDirector))
	roles, err = s.FindRolesByUser(ctx, "t-1", "u-a")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleManager}, roles)

	assert.ErrorIs(t, s.GrantRole(ctx, domain.UserRole{TenantID: "t-1"}), apperrors.ErrValidation)
}
