package domain_test

import (
	"errors"
	"testing"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseRequestStateMachine_Transitions(t *testing.T) {
	sm := domain.PurchaseRequestStateMachine
	all := []domain.PurchaseRequestStatus{
		domain.PurchaseRequestDraft,
		domain.PurchaseRequestPendingApproval,
		domain.PurchaseRequestApprovedStatus,
		domain.PurchaseRequestRejectedStatus,
		domain.PurchaseRequestReturnedStatus,
		domain.PurchaseRequestCancelledStatus,
	}
	allowed := map[[2]domain.PurchaseRequestStatus]bool{
		{domain.PurchaseRequestDraft, domain.PurchaseRequestPendingApproval}:           true,
		{domain.PurchaseRequestDraft, domain.PurchaseRequestCancelledStatus}:           true,
		{domain.PurchaseRequestPendingApproval, domain.PurchaseRequestApprovedStatus}:  true,
		{domain.PurchaseRequestPendingApproval, domain.PurchaseRequestRejectedStatus}:  true,
		{domain.PurchaseRequestPendingApproval, domain.PurchaseRequestReturnedStatus}:  true,
		{domain.PurchaseRequestPendingApproval, domain.PurchaseRequestCancelledStatus}: true,
		{domain.PurchaseRequestReturnedStatus, domain.PurchaseRequestPendingApproval}:  true,
		{domain.PurchaseRequestReturnedStatus, domain.PurchaseRequestCancelledStatus}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]domain.PurchaseRequestStatus{from, to}]
			assert.Equal(t, want, sm.CanTransition(from, to), "%s -> %s", from, to)

			err := sm.ValidateTransition(from, to)
			if want {
				assert.NoError(t, err)
				continue
			}
			var invalid *domain.InvalidTransitionError
			require.True(t, errors.As(err, &invalid), "%s -> %s", from, to)
			assert.Equal(t, string(from), invalid.From)
			assert.Equal(t, string(to), invalid.To)
			assert.ErrorIs(t, err, apperrors.ErrBusinessRule)
		}
	}
}

func TestStateMachine_TerminalStates(t *testing.T) {
	for _, s := range []domain.PurchaseRequestStatus{
		domain.PurchaseRequestApprovedStatus,
		domain.PurchaseRequestRejectedStatus,
		domain.PurchaseRequestCancelledStatus,
	} {
		assert.True(t, domain.PurchaseRequestStateMachine.IsTerminal(s), s)
		assert.Empty(t, domain.PurchaseRequestStateMachine.AllowedTransitions(s), s)
	}
	for _, s := range []domain.ApplicationStatus{
		domain.ApplicationApprovedStatus,
		domain.ApplicationRejectedStatus,
		domain.ApplicationCancelledStatus,
	} {
		assert.True(t, domain.ApplicationStateMachine.IsTerminal(s), s)
	}
	assert.False(t, domain.ApplicationStateMachine.IsTerminal(domain.ApplicationReturnedStatus))
}

func TestStateMachine_AllowedTransitionsIsACopy(t *testing.T) {
	next := domain.ApplicationStateMachine.AllowedTransitions(domain.ApplicationDraft)
	require.ElementsMatch(t, []domain.ApplicationStatus{domain.ApplicationInReview, domain.ApplicationCancelledStatus}, next)

	next[0] = domain.ApplicationApprovedStatus
	assert.False(t, domain.ApplicationStateMachine.CanTransition(domain.ApplicationDraft, domain.ApplicationApprovedStatus))
}
