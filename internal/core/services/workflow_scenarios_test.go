package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/core/pipeline"
	"github.com/SscSPs/procureflow/internal/core/services"
	"github.com/SscSPs/procureflow/internal/dto"
	"github.com/SscSPs/procureflow/internal/middleware"
	"github.com/SscSPs/procureflow/internal/repositories/memory"
	"github.com/SscSPs/procureflow/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var (
	admin     = domain.Actor{UserID: "u-admin", UserName: "Ash", TenantID: "t-1", Roles: []string{domain.RoleAdmin}}
	executive = domain.Actor{UserID: "u-exec", UserName: "Emery", TenantID: "t-1"}
)

type WorkflowScenarioTestSuite struct {
	suite.Suite
	store     *memory.Store
	container *services.Container
	clock     *utils.FixedClock
}

func (suite *WorkflowScenarioTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.clock = utils.NewFixedClock(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	repos := memory.NewRepositoryProvider(suite.store)

	container, err := services.NewContainer(&repos, services.Options{
		Actors:         middleware.ContextActorProvider{},
		Clock:          suite.clock,
		IDs:            utils.NewSequenceGenerator("id"),
		Policy:         domain.DefaultApprovalPolicy(),
		CacheSize:      64,
		CacheTTL:       time.Minute,
		TracerProvider: tracenoop.NewTracerProvider(),
		MeterProvider:  metricnoop.NewMeterProvider(),
	})
	suite.Require().NoError(err)
	suite.container = container

	ctx := context.Background()
	for _, ur := range []domain.UserRole{
		{TenantID: "t-1", UserID: manager.UserID, UserName: manager.UserName, Role: domain.RoleManager},
		{TenantID: "t-1", UserID: director.UserID, UserName: director.UserName, Role: domain.RoleDirector},
		{TenantID: "t-1", UserID: executive.UserID, UserName: executive.UserName, Role: domain.RoleExecutive},
	} {
		suite.Require().NoError(suite.store.GrantRole(ctx, ur))
	}
}

func (suite *WorkflowScenarioTestSuite) exec(actor domain.Actor, cmd pipeline.Command) pipeline.Result {
	suite.clock.Advance(time.Second)
	res, err := suite.container.Executor.Execute(middleware.WithActor(context.Background(), actor), cmd)
	if res.Kind == pipeline.ErrorKindInfrastructure {
		suite.Require().Error(err)
	} else {
		suite.Require().NoError(err)
	}
	return res
}

func (suite *WorkflowScenarioTestSuite) mustPR(actor domain.Actor, cmd pipeline.Command) dto.PurchaseRequestView {
	res := suite.exec(actor, cmd)
	suite.Require().True(res.Success, "%s failed: %s %s", cmd.Type, res.Kind, res.Error)
	view, ok := res.Value.(dto.PurchaseRequestView)
	suite.Require().True(ok, "unexpected value %T", res.Value)
	return view
}

func (suite *WorkflowScenarioTestSuite) mustApp(actor domain.Actor, cmd pipeline.Command) dto.ApplicationView {
	res := suite.exec(actor, cmd)
	suite.Require().True(res.Success, "%s failed: %s %s", cmd.Type, res.Kind, res.Error)
	view, ok := res.Value.(dto.ApplicationView)
	suite.Require().True(ok, "unexpected value %T", res.Value)
	return view
}

func createPayload(title string, unitPrice int64) dto.CreatePurchaseRequest {
	return dto.CreatePurchaseRequest{
		Title: title,
		Items: []dto.LineItemInput{
			{Description: "Server", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(unitPrice)},
		},
	}
}

func (suite *WorkflowScenarioTestSuite) countEvents(eventType string) int {
	msgs, err := suite.store.ListOutboxMessages(context.Background(), eventType)
	suite.Require().NoError(err)
	return len(msgs)
}

func (suite *WorkflowScenarioTestSuite) TestHighValueRequestNeedsThreeApprovals() {
	created := suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestCreate, Payload: createPayload("Rack", 150000)})
	suite.True(created.TotalAmount.Equal(decimal.NewFromInt(450000)))
	suite.Equal(domain.PurchaseRequestDraft, created.Status)

	submitted := suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestSubmit, Payload: dto.EntityRef{ID: created.ID}})
	suite.Equal(domain.PurchaseRequestPendingApproval, submitted.Status)
	suite.Require().Len(submitted.ApprovalSteps, 3)
	suite.Equal(manager.UserID, submitted.ApprovalSteps[0].ApproverID)
	suite.Equal(director.UserID, submitted.ApprovalSteps[1].ApproverID)
	suite.Equal(executive.UserID, submitted.ApprovalSteps[2].ApproverID)

	for i, approver := range []domain.Actor{manager, director, executive} {
		view := suite.mustPR(approver, pipeline.Command{
			Type:    services.OpPurchaseRequestApprove,
			Payload: dto.ApproveRequest{ID: created.ID, Comment: "ok"},
		})
		if i < 2 {
			suite.Equal(domain.PurchaseRequestPendingApproval, view.Status)
			suite.Equal(i+2, view.CurrentStep)
		} else {
			suite.Equal(domain.PurchaseRequestApprovedStatus, view.Status)
			suite.Len(view.Decisions, 3)
		}
	}

	suite.Equal(1, suite.countEvents(domain.EventPurchaseRequestApproved))
	suite.Equal(2, suite.countEvents(domain.EventPurchaseRequestStepApproved))
}

func (suite *WorkflowScenarioTestSuite) TestApprovingAnApprovedRequestIsForbidden() {
	created := suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestCreate, Payload: createPayload("Desk", 100)})
	suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestSubmit, Payload: dto.EntityRef{ID: created.ID}})
	approved := suite.mustPR(manager, pipeline.Command{Type: services.OpPurchaseRequestApprove, Payload: dto.ApproveRequest{ID: created.ID}})
	suite.Require().Equal(domain.PurchaseRequestApprovedStatus, approved.Status)
	eventsBefore := suite.countEvents(domain.EventPurchaseRequestApproved)

	res := suite.exec(manager, pipeline.Command{Type: services.OpPurchaseRequestApprove, Payload: dto.ApproveRequest{ID: created.ID}})
	suite.False(res.Success)
	suite.Equal(pipeline.ErrorKindForbidden, res.Kind)
	suite.Contains(res.Error, "not pending approval")

	pr, err := suite.store.FindPurchaseRequestByID(context.Background(), created.ID)
	suite.Require().NoError(err)
	suite.Equal(approved.Version, pr.Version())
	suite.Equal(eventsBefore, suite.countEvents(domain.EventPurchaseRequestApproved))
}

func (suite *WorkflowScenarioTestSuite) TestConcurrentEditsOneWins() {
	created := suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestCreate, Payload: createPayload("Chairs", 10)})
	edit := func(title string, expected *int64) pipeline.Command {
		p := createPayload(title, 10)
		return pipeline.Command{Type: services.OpPurchaseRequestEdit, Payload: dto.EditPurchaseRequest{
			ID: created.ID, ExpectedVersion: expected, Title: p.Title, Items: p.Items,
		}}
	}
	for i := 0; i < 4; i++ {
		suite.mustPR(requester, edit("Chairs", nil))
	}
	pr, err := suite.store.FindPurchaseRequestByID(context.Background(), created.ID)
	suite.Require().NoError(err)
	suite.Require().EqualValues(5, pr.Version())

	arrivals := make(chan struct{}, 2)
	release := make(chan struct{})
	suite.store.SetBeforeCommitHook(func() {
		arrivals <- struct{}{}
		<-release
	})
	defer suite.store.SetBeforeCommitHook(nil)

	expected := int64(5)
	results := make([]pipeline.Result, 2)
	var wg sync.WaitGroup
	for i, title := range []string{"Blue chairs", "Red chairs"} {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			results[i], _ = suite.container.Executor.Execute(middleware.WithActor(context.Background(), requester), edit(title, &expected))
		}(i, title)
	}
	<-arrivals
	<-arrivals
	close(release)
	wg.Wait()

	var succeeded, conflicted int
	for _, res := range results {
		switch {
		case res.Success:
			succeeded++
		case res.Kind == pipeline.ErrorKindConflict:
			conflicted++
		}
	}
	suite.Equal(1, succeeded)
	suite.Equal(1, conflicted)

	pr, err = suite.store.FindPurchaseRequestByID(context.Background(), created.ID)
	suite.Require().NoError(err)
	suite.EqualValues(6, pr.Version())
	suite.Equal(5, suite.countEvents(domain.EventPurchaseRequestEdited))
}

func (suite *WorkflowScenarioTestSuite) TestIdempotentCreateReturnsStoredResult() {
	cmd := pipeline.Command{Type: services.OpPurchaseRequestCreate, Payload: createPayload("Monitors", 300), IdempotencyKey: "abc-123"}

	first := suite.mustPR(requester, cmd)
	second := suite.mustPR(requester, cmd)
	suite.Equal(first, second)

	entries, err := suite.store.ListAuditLogEntries(context.Background(), domain.EntityPurchaseRequest, first.ID)
	suite.Require().NoError(err)
	suite.Len(entries, 1)
	suite.Equal(1, suite.countEvents(domain.EventPurchaseRequestCreated))
}

func (suite *WorkflowScenarioTestSuite) TestGenericWorkflowResolvesRolesPerStep() {
	def := suite.exec(admin, pipeline.Command{Type: services.OpWorkflowDefinitionDefine, Payload: dto.DefineWorkflow{
		ApplicationType: "leave",
		Name:            "Leave approval",
		Steps: []dto.WorkflowStepInput{
			{StepNumber: 1, Role: domain.RoleManager},
			{StepNumber: 2, Role: domain.RoleDirector},
		},
	}})
	suite.Require().True(def.Success, def.Error)

	app := suite.mustApp(requester, pipeline.Command{Type: services.OpApplicationCreate, Payload: dto.CreateApplication{
		ApplicationType: "leave", Title: "Summer", Content: "two weeks",
	}})
	submitted := suite.mustApp(requester, pipeline.Command{Type: services.OpApplicationSubmit, Payload: dto.EntityRef{ID: app.ID}})
	suite.Equal(domain.ApplicationInReview, submitted.Status)
	suite.Equal(2, submitted.TotalSteps)

	step1 := suite.mustApp(manager, pipeline.Command{Type: services.OpApplicationApprove, Payload: dto.ApproveRequest{ID: app.ID}})
	suite.Equal(2, step1.CurrentStep)

	res := suite.exec(manager, pipeline.Command{Type: services.OpApplicationApprove, Payload: dto.ApproveRequest{ID: app.ID}})
	suite.False(res.Success)
	suite.Equal(pipeline.ErrorKindForbidden, res.Kind)
	suite.Contains(res.Error, "requires role Director")

	done := suite.mustApp(director, pipeline.Command{Type: services.OpApplicationApprove, Payload: dto.ApproveRequest{ID: app.ID}})
	suite.Equal(domain.ApplicationApprovedStatus, done.Status)
	suite.Equal(1, suite.countEvents(domain.EventApplicationApproved))
}

func (suite *WorkflowScenarioTestSuite) TestRevokedRoleKeepsAssignedStepButLosesGenericStep() {
	def := suite.exec(admin, pipeline.Command{Type: services.OpWorkflowDefinitionDefine, Payload: dto.DefineWorkflow{
		ApplicationType: "leave",
		Name:            "Leave approval",
		Steps:           []dto.WorkflowStepInput{{StepNumber: 1, Role: domain.RoleManager}},
	}})
	suite.Require().True(def.Success, def.Error)

	pr := suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestCreate, Payload: createPayload("Keyboards", 100)})
	submittedPR := suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestSubmit, Payload: dto.EntityRef{ID: pr.ID}})
	suite.Require().Len(submittedPR.ApprovalSteps, 1)
	suite.Require().Equal(manager.UserID, submittedPR.ApprovalSteps[0].ApproverID)

	app := suite.mustApp(requester, pipeline.Command{Type: services.OpApplicationCreate, Payload: dto.CreateApplication{
		ApplicationType: "leave", Title: "Winter",
	}})
	suite.mustApp(requester, pipeline.Command{Type: services.OpApplicationSubmit, Payload: dto.EntityRef{ID: app.ID}})

	suite.Require().NoError(suite.store.RevokeRole(context.Background(), "t-1", manager.UserID, domain.RoleManager))

	// Purchase request approvers are fixed when the request is submitted.
	approved := suite.mustPR(manager, pipeline.Command{Type: services.OpPurchaseRequestApprove, Payload: dto.ApproveRequest{ID: pr.ID}})
	suite.Equal(domain.PurchaseRequestApprovedStatus, approved.Status)

	// Application steps check the directory role at decision time.
	res := suite.exec(manager, pipeline.Command{Type: services.OpApplicationApprove, Payload: dto.ApproveRequest{ID: app.ID}})
	suite.False(res.Success)
	suite.Equal(pipeline.ErrorKindForbidden, res.Kind)
	suite.Contains(res.Error, "step 1 requires role Manager")
	suite.Equal(0, suite.countEvents(domain.EventApplicationApproved))
}

func (suite *WorkflowScenarioTestSuite) TestSubmitWithoutDefinitionIsBusinessRule() {
	app := suite.mustApp(requester, pipeline.Command{Type: services.OpApplicationCreate, Payload: dto.CreateApplication{
		ApplicationType: "travel", Title: "Conference",
	}})
	res := suite.exec(requester, pipeline.Command{Type: services.OpApplicationSubmit, Payload: dto.EntityRef{ID: app.ID}})
	suite.Equal(pipeline.ErrorKindBusinessRule, res.Kind)
}

func (suite *WorkflowScenarioTestSuite) TestReturnAndResubmitRestartsAtStepOne() {
	created := suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestCreate, Payload: createPayload("Laptops", 50000)})
	suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestSubmit, Payload: dto.EntityRef{ID: created.ID}})
	suite.mustPR(manager, pipeline.Command{Type: services.OpPurchaseRequestApprove, Payload: dto.ApproveRequest{ID: created.ID}})

	returned := suite.mustPR(director, pipeline.Command{Type: services.OpPurchaseRequestReturn, Payload: dto.ReasonRequest{ID: created.ID, Reason: "split the order"}})
	suite.Equal(domain.PurchaseRequestReturnedStatus, returned.Status)
	suite.Equal(0, returned.CurrentStep)

	resubmitted := suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestResubmit, Payload: dto.EntityRef{ID: created.ID}})
	suite.Equal(domain.PurchaseRequestPendingApproval, resubmitted.Status)
	suite.Equal(1, resubmitted.CurrentStep)
}

func (suite *WorkflowScenarioTestSuite) TestRedefiningWorkflowKeepsOneActive() {
	define := func(name string, role string) pipeline.Result {
		return suite.exec(admin, pipeline.Command{Type: services.OpWorkflowDefinitionDefine, Payload: dto.DefineWorkflow{
			ApplicationType: "expense", Name: name,
			Steps: []dto.WorkflowStepInput{{StepNumber: 1, Role: role}},
		}})
	}
	suite.Require().True(define("v1", domain.RoleManager).Success)
	suite.Require().True(define("v2", domain.RoleDirector).Success)

	res := suite.exec(requester, pipeline.Command{Type: services.OpWorkflowDefinitionGet, Payload: dto.GetWorkflow{ApplicationType: "expense"}})
	suite.Require().True(res.Success, res.Error)
	view := res.Value.(dto.WorkflowDefinitionView)
	suite.Equal("v2", view.Name)
	suite.Equal(1, suite.countEvents(domain.EventWorkflowDefinitionDeactivated))

	denied := suite.exec(requester, pipeline.Command{Type: services.OpWorkflowDefinitionDefine, Payload: dto.DefineWorkflow{
		ApplicationType: "expense", Name: "v3",
		Steps: []dto.WorkflowStepInput{{StepNumber: 1, Role: domain.RoleManager}},
	}})
	suite.Equal(pipeline.ErrorKindForbidden, denied.Kind)
}

func (suite *WorkflowScenarioTestSuite) TestAuditLogPages() {
	created := suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestCreate, Payload: createPayload("Phones", 100)})
	for i := 0; i < 2; i++ {
		suite.mustPR(requester, pipeline.Command{Type: services.OpPurchaseRequestEdit, Payload: dto.EditPurchaseRequest{
			ID: created.ID, Title: "Phones", Items: createPayload("Phones", 100).Items,
		}})
	}

	list := func(token string) dto.AuditLogPage {
		res := suite.exec(admin, pipeline.Command{Type: services.OpAuditLogList, Payload: dto.ListAuditLog{
			EntityType: domain.EntityPurchaseRequest, EntityID: created.ID, Limit: 2, PageToken: token,
		}})
		suite.Require().True(res.Success, res.Error)
		return res.Value.(dto.AuditLogPage)
	}
	first := list("")
	suite.Require().Len(first.Entries, 2)
	suite.Equal(services.OpPurchaseRequestCreate, first.Entries[0].Action)
	suite.Nil(first.Entries[0].OldValues)
	suite.NotEmpty(first.NextPageToken)

	second := list(first.NextPageToken)
	suite.Len(second.Entries, 1)
	suite.Empty(second.NextPageToken)

	denied := suite.exec(requester, pipeline.Command{Type: services.OpAuditLogList, Payload: dto.ListAuditLog{
		EntityType: domain.EntityPurchaseRequest, EntityID: created.ID,
	}})
	suite.Equal(pipeline.ErrorKindForbidden, denied.Kind)
}

func TestWorkflowScenarioTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowScenarioTestSuite))
}
