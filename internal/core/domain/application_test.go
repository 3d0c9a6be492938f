package domain_test

import (
	"testing"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeDefinition(t *testing.T, id string, roles ...string) *domain.WorkflowDefinition {
	t.Helper()
	admin := domain.Actor{UserID: "u-adm", TenantID: "t-1", Roles: []string{domain.RoleAdmin}}
	ws := make([]domain.WorkflowStep, len(roles))
	for i, r := range roles {
		ws[i] = domain.WorkflowStep{StepNumber: i + 1, Role: r, Name: r + " review"}
	}
	def, err := domain.NewWorkflowDefinition(id, admin, "leave", "Leave approval", ws, testNow)
	require.NoError(t, err)
	def.Activate(admin, testNow)
	return def
}

func TestNewWorkflowDefinition_Validation(t *testing.T) {
	admin := domain.Actor{UserID: "u-adm", TenantID: "t-1"}
	_, err := domain.NewWorkflowDefinition("wd-1", admin, "leave", "x", nil, testNow)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = domain.NewWorkflowDefinition("wd-1", admin, "leave", "x", []domain.WorkflowStep{{StepNumber: 2, Role: "Manager"}}, testNow)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = domain.NewWorkflowDefinition("wd-1", admin, "leave", "x", []domain.WorkflowStep{{StepNumber: 1}}, testNow)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	def, err := domain.NewWorkflowDefinition("wd-1", admin, "leave", "x", []domain.WorkflowStep{{StepNumber: 2, Role: "Director"}, {StepNumber: 1, Role: "Manager"}}, testNow)
	require.NoError(t, err)
	step, ok := def.Step(1)
	require.True(t, ok)
	assert.Equal(t, "Manager", step.Role)
	assert.False(t, def.IsActive())
}

func TestWorkflowDefinition_ActivateDeactivate(t *testing.T) {
	def := activeDefinition(t, "wd-1", domain.RoleManager)
	assert.True(t, def.IsActive())
	def.Activate(requester, testNow)
	def.Deactivate(requester, testNow)
	def.Deactivate(requester, testNow)
	assert.False(t, def.IsActive())
	assert.Equal(t, []string{domain.EventWorkflowDefinitionActivated, domain.EventWorkflowDefinitionDeactivated}, eventTypes(def.PullEvents()))
}

func TestCanDefineWorkflow(t *testing.T) {
	assert.True(t, domain.CanDefineWorkflow(domain.Actor{UserID: "a", TenantID: "t-1", Roles: []string{domain.RoleAdmin}}).IsAllowed)
	assert.False(t, domain.CanDefineWorkflow(manager).IsAllowed)
}

func TestApprovalApplication_LateBoundRoles(t *testing.T) {
	def := activeDefinition(t, "wd-1", domain.RoleManager, domain.RoleDirector)
	app, err := domain.NewApprovalApplication("app-1", requester, "leave", "Vacation", "two weeks", testNow)
	require.NoError(t, err)

	assert.False(t, app.CanView(manager).IsAllowed)
	require.NoError(t, app.Submit(requester, def, testNow))
	assert.True(t, app.CanView(manager).IsAllowed)
	assert.Equal(t, 2, app.TotalSteps())

	// The role is checked against the directory roles passed in, not the token.
	assert.False(t, app.CanApprove(manager, def, nil).IsAllowed)
	assert.True(t, app.CanApprove(manager, def, []string{domain.RoleManager}).IsAllowed)
	assert.False(t, app.CanApprove(requester, def, []string{domain.RoleManager}).IsAllowed)

	require.NoError(t, app.Approve(manager, def, []string{domain.RoleManager}, "", testNow))
	assert.Equal(t, 2, app.CurrentStep())

	// A replacement definition is used from now on.
	replacement := activeDefinition(t, "wd-2", domain.RoleManager, domain.RoleExecutive)
	assert.False(t, app.CanApprove(director, replacement, []string{domain.RoleDirector}).IsAllowed)

	require.NoError(t, app.Approve(director, def, []string{domain.RoleDirector}, "", testNow))
	assert.Equal(t, domain.ApplicationApprovedStatus, app.Status())
	assert.Equal(t, []string{
		domain.EventApplicationCreated,
		domain.EventApplicationSubmitted,
		domain.EventApplicationStepApproved,
		domain.EventApplicationApproved,
	}, eventTypes(app.PullEvents()))
}

func TestApprovalApplication_SubmitRequiresActiveDefinition(t *testing.T) {
	app, err := domain.NewApprovalApplication("app-1", requester, "leave", "Vacation", "", testNow)
	require.NoError(t, err)

	assert.ErrorIs(t, app.Submit(requester, nil, testNow), apperrors.ErrBusinessRule)

	def := activeDefinition(t, "wd-1", domain.RoleManager)
	def.Deactivate(requester, testNow)
	assert.ErrorIs(t, app.Submit(requester, def, testNow), apperrors.ErrBusinessRule)
	assert.Equal(t, domain.ApplicationDraft, app.Status())
}

func TestApprovalApplication_ReturnResubmitCancel(t *testing.T) {
	def := activeDefinition(t, "wd-1", domain.RoleManager, domain.RoleDirector)
	app, err := domain.NewApprovalApplication("app-1", requester, "leave", "Vacation", "", testNow)
	require.NoError(t, err)
	require.NoError(t, app.Submit(requester, def, testNow))
	require.NoError(t, app.Approve(manager, def, []string{domain.RoleManager}, "", testNow))

	require.NoError(t, app.Return(director, def, []string{domain.RoleDirector}, "dates unclear", testNow))
	assert.Equal(t, domain.ApplicationReturnedStatus, app.Status())
	assert.Equal(t, 0, app.CurrentStep())

	require.NoError(t, app.Edit(requester, "Vacation (June)", "", nil, testNow))
	require.NoError(t, app.Resubmit(requester, def, testNow))
	assert.Equal(t, 1, app.CurrentStep())

	assert.ErrorIs(t, app.Reject(manager, def, []string{domain.RoleManager}, "", testNow), apperrors.ErrValidation)
	require.NoError(t, app.Cancel(requester, "", testNow))
	assert.Equal(t, domain.ApplicationCancelledStatus, app.Status())
	assert.False(t, app.CanResubmit(requester).IsAllowed)
}
