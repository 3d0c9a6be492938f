package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const testJWTSecret = "test-secret-key"

func newTestRouter(extra ...gin.HandlerFunc) (*gin.Engine, *domain.Actor) {
	gin.SetMode(gin.TestMode)
	seen := &domain.Actor{}
	r := gin.New()
	r.Use(StructuredLoggingMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.Use(AuthMiddleware(testJWTSecret))
	r.Use(extra...)
	r.GET("/whoami", func(c *gin.Context) {
		actor, ok := GetActorFromContext(c)
		if !ok {
			c.Status(http.StatusForbidden)
			return
		}
		*seen = actor
		c.Status(http.StatusNoContent)
	})
	return r, seen
}

func bearer(t *testing.T, actor domain.Actor) string {
	t.Helper()
	token, err := utils.GenerateJWT(actor, testJWTSecret, time.Hour, "test")
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthMiddleware_StoresActor(t *testing.T) {
	r, seen := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", bearer(t, domain.Actor{UserID: "u-1", UserName: "Ada", TenantID: "t-1", Roles: []string{"Manager"}}))
	req.Header.Set(HeaderCorrelationID, "corr-42")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u-1", seen.UserID)
	assert.Equal(t, "t-1", seen.TenantID)
	assert.Equal(t, []string{"Manager"}, seen.Roles)
	assert.Equal(t, "corr-42", seen.CorrelationID)
	assert.NotEmpty(t, seen.RequestID)
	assert.Equal(t, seen.RequestID, w.Header().Get(HeaderRequestID))
	assert.Equal(t, "corr-42", w.Header().Get(HeaderCorrelationID))
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	r, _ := newTestRouter()

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestContextActorProvider(t *testing.T) {
	_, ok := ContextActorProvider{}.CurrentActor(context.Background())
	assert.False(t, ok)

	ctx := WithCorrelation(context.Background(), "req-1", "")
	ctx = WithActor(ctx, domain.Actor{UserID: "u-1", TenantID: "t-1"})
	actor, ok := ContextActorProvider{}.CurrentActor(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-1", actor.RequestID)
	assert.Equal(t, "req-1", actor.CorrelationID, "request id doubles as correlation id")
}

func TestRateLimit_PerActor(t *testing.T) {
	lim := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 1})
	r, _ := newTestRouter(RateLimit(lim))

	do := func(actor domain.Actor) int {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", bearer(t, actor))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	alice := domain.Actor{UserID: "u-a", TenantID: "t-1"}
	bob := domain.Actor{UserID: "u-b", TenantID: "t-1"}
	assert.Equal(t, http.StatusNoContent, do(alice))
	assert.Equal(t, http.StatusTooManyRequests, do(alice))
	assert.Equal(t, http.StatusNoContent, do(bob))
}
