package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/core/pipeline"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/SscSPs/procureflow/internal/core/services"
	"github.com/SscSPs/procureflow/internal/dto"
	"github.com/SscSPs/procureflow/internal/handlers"
	"github.com/SscSPs/procureflow/internal/middleware"
	"github.com/SscSPs/procureflow/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock executor ---
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, cmd pipeline.Command) (pipeline.Result, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

var _ handlers.CommandExecutor = (*MockExecutor)(nil)

// --- Mock boundary checker ---
type MockBoundaries struct {
	mock.Mock
}

func (m *MockBoundaries) Check(ctx context.Context, entityType string, action domain.BoundaryAction, actor domain.Actor, entityID string) (domain.BoundaryDecision, error) {
	args := m.Called(ctx, entityType, action, actor.UserID, entityID)
	return args.Get(0).(domain.BoundaryDecision), args.Error(1)
}

var _ portssvc.BoundaryCheckerSvc = (*MockBoundaries)(nil)

// --- Test Suite ---
type HandlerTestSuite struct {
	suite.Suite
	router     *gin.Engine
	exec       *MockExecutor
	boundaries *MockBoundaries
	jwtSecret  string
	actor      domain.Actor
}

func (suite *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.actor = domain.Actor{UserID: "u-1", UserName: "Ann", TenantID: "t-1", Roles: []string{domain.RoleAdmin}}

	suite.exec = new(MockExecutor)
	suite.boundaries = new(MockBoundaries)

	v1 := suite.router.Group("/api/v1", middleware.AuthMiddleware(suite.jwtSecret))
	handlers.RegisterPurchaseRequestRoutes(v1, suite.exec, suite.boundaries)
	handlers.RegisterApplicationRoutes(v1, suite.exec, suite.boundaries)
	handlers.RegisterWorkflowDefinitionRoutes(v1, suite.exec)
	handlers.RegisterAuditRoutes(v1, suite.exec)
}

func (suite *HandlerTestSuite) do(method, url string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	suite.Require().NoError(err)
	token, err := utils.GenerateJWT(suite.actor, suite.jwtSecret, time.Hour, "procureflow-test")
	suite.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// --- Test Cases ---

func (suite *HandlerTestSuite) TestCreatePurchaseRequest_Created() {
	view := dto.PurchaseRequestView{ID: "pr-1", Title: "Laptops"}
	suite.exec.On("Execute", mock.Anything, mock.MatchedBy(func(cmd pipeline.Command) bool {
		p, ok := cmd.Payload.(dto.CreatePurchaseRequest)
		return ok && cmd.Type == services.OpPurchaseRequestCreate && p.Title == "Laptops" && cmd.IdempotencyKey == "key-1"
	})).Return(pipeline.Success(view), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-requests",
		map[string]any{"title": "Laptops"},
		map[string]string{handlers.HeaderIdempotencyKey: "key-1"})

	suite.Equal(http.StatusCreated, w.Code)
	var got dto.PurchaseRequestView
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &got))
	suite.Equal("pr-1", got.ID)
	suite.exec.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestApprove_TakesIDFromPathAndAllowsEmptyBody() {
	suite.exec.On("Execute", mock.Anything, mock.MatchedBy(func(cmd pipeline.Command) bool {
		p, ok := cmd.Payload.(dto.ApproveRequest)
		return ok && cmd.Type == services.OpPurchaseRequestApprove && p.ID == "pr-9" && p.Comment == ""
	})).Return(pipeline.Success(dto.PurchaseRequestView{ID: "pr-9"}), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-requests/pr-9/approve", nil, nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.exec.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestFailureKindsMapToStatus() {
	cases := []struct {
		kind   pipeline.ErrorKind
		status int
	}{
		{pipeline.ErrorKindValidation, http.StatusBadRequest},
		{pipeline.ErrorKindBusinessRule, http.StatusUnprocessableEntity},
		{pipeline.ErrorKindForbidden, http.StatusForbidden},
		{pipeline.ErrorKindConflict, http.StatusConflict},
		{pipeline.ErrorKindNotFound, http.StatusNotFound},
		{pipeline.ErrorKindInfrastructure, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		suite.Run(string(tc.kind), func() {
			suite.SetupTest()
			suite.exec.On("Execute", mock.Anything, mock.Anything).
				Return(pipeline.Failure(tc.kind, "boom"), nil).Once()

			w := suite.do(http.MethodPost, "/api/v1/applications/app-1/submit", nil, nil)

			suite.Equal(tc.status, w.Code)
			var body dto.ErrorResponse
			suite.NoError(json.Unmarshal(w.Body.Bytes(), &body))
			suite.Equal("boom", body.Error)
			suite.Equal(string(tc.kind), body.Kind)
		})
	}
}

func (suite *HandlerTestSuite) TestMalformedBodyIsRejectedBeforeExecution() {
	req, _ := http.NewRequest(http.MethodPut, "/api/v1/applications/app-1", bytes.NewBufferString("{not json"))
	token, err := utils.GenerateJWT(suite.actor, suite.jwtSecret, time.Hour, "procureflow-test")
	suite.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.exec.AssertNotCalled(suite.T(), "Execute", mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestDefineWorkflow_UsesPathType() {
	suite.exec.On("Execute", mock.Anything, mock.MatchedBy(func(cmd pipeline.Command) bool {
		p, ok := cmd.Payload.(dto.DefineWorkflow)
		return ok && p.ApplicationType == "leave" && len(p.Steps) == 1 && p.Steps[0].Role == "Manager"
	})).Return(pipeline.Success(dto.WorkflowDefinitionView{ApplicationType: "leave"}), nil).Once()

	w := suite.do(http.MethodPut, "/api/v1/workflow-definitions/leave", map[string]any{
		"name":  "Leave",
		"steps": []map[string]any{{"stepNumber": 1, "role": "Manager"}},
	}, nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.exec.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestAuditLog_BindsQuery() {
	suite.exec.On("Execute", mock.Anything, mock.MatchedBy(func(cmd pipeline.Command) bool {
		p, ok := cmd.Payload.(dto.ListAuditLog)
		return ok && cmd.Type == services.OpAuditLogList &&
			p.EntityType == domain.EntityPurchaseRequest && p.EntityID == "pr-1" &&
			p.Limit == 5 && p.PageToken == "abc"
	})).Return(pipeline.Success(dto.AuditLogPage{Entries: []dto.AuditLogEntryView{}}), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/audit-log/PurchaseRequest/pr-1?limit=5&pageToken=abc", nil, nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.exec.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestPermissions() {
	suite.boundaries.On("Check", mock.Anything, domain.EntityPurchaseRequest, domain.ActionApprove, "u-1", "pr-1").
		Return(domain.Deny("not the current approver"), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/purchase-requests/pr-1/permissions/approve", nil, nil)

	suite.Equal(http.StatusOK, w.Code)
	var got dto.PermissionView
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &got))
	suite.False(got.Allowed)
	suite.Equal("not the current approver", got.Reason)
	suite.Equal("approve", got.Action)
}

func (suite *HandlerTestSuite) TestPermissions_UnknownActionAndMissingEntity() {
	w := suite.do(http.MethodGet, "/api/v1/applications/app-1/permissions/launch", nil, nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	suite.boundaries.On("Check", mock.Anything, domain.EntityApplication, domain.ActionView, "u-1", "missing").
		Return(domain.BoundaryDecision{}, apperrors.ErrNotFound).Once()
	w = suite.do(http.MethodGet, "/api/v1/applications/missing/permissions/view", nil, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestUnauthenticatedRequestIsRejected() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/purchase-requests/pr-1", nil)
	w := httptest.NewRecorder()

	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.exec.AssertNotCalled(suite.T(), "Execute", mock.Anything, mock.Anything)
}

// --- Run Test Suite ---
func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
