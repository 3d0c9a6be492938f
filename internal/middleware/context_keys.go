package middleware

import (
	"context"

	"github.com/SscSPs/procureflow/internal/core/domain"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

// actorKey is the key used to store the authenticated actor in the request context.
const actorKey = contextKey("actor")

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActorFromContext retrieves the authenticated actor from the Gin request.
func GetActorFromContext(c *gin.Context) (domain.Actor, bool) {
	return ContextActorProvider{}.CurrentActor(c.Request.Context())
}

// ContextActorProvider reads the actor stored by AuthMiddleware or WithActor and fills in
// the request and correlation ids of the current request.
type ContextActorProvider struct{}

var _ portssvc.ActorProvider = ContextActorProvider{}

func (ContextActorProvider) CurrentActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	if !ok || actor.UserID == "" {
		return domain.Actor{}, false
	}
	if actor.RequestID == "" {
		actor.RequestID = RequestIDFromCtx(ctx)
	}
	if actor.CorrelationID == "" {
		actor.CorrelationID = CorrelationIDFromCtx(ctx)
	}
	if actor.CorrelationID == "" {
		actor.CorrelationID = actor.RequestID
	}
	return actor, true
}
