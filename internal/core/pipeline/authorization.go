package pipeline

import (
	"context"
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
)

// AuthorizationBehavior asks the operation's boundary whether the actor may proceed. It runs
// before any transaction is opened.
type AuthorizationBehavior struct{}

func NewAuthorizationBehavior() *AuthorizationBehavior { return &AuthorizationBehavior{} }

func (b *AuthorizationBehavior) Name() string                 { return "authorization" }
func (b *AuthorizationBehavior) Priority() int                { return PriorityAuthorization }
func (b *AuthorizationBehavior) AppliesTo(d *Descriptor) bool { return d.Authorizes() }

func (b *AuthorizationBehavior) Handle(ctx context.Context, call *Call, next Next) Result {
	decision, err := call.Descriptor.authorize(ctx, call.Actor, call.Command.Payload)
	if err != nil {
		return FromError(err)
	}
	if !decision.IsAllowed {
		return FromError(fmt.Errorf("%w: %s", apperrors.ErrForbidden, decision.Reason))
	}
	return next(ctx)
}
