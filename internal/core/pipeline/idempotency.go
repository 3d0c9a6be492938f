package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
)

// ErrIdempotencyRace is reported when another execution with the same key committed first.
var ErrIdempotencyRace = fmt.Errorf("%w: idempotency key already used", apperrors.ErrDuplicate)

// IdempotencyBehavior returns the stored result of a command already executed with the same
// key by the same caller. Otherwise it registers a claim that the Transaction behavior writes
// in the same transaction as the mutation. Only successful results are stored.
type IdempotencyBehavior struct {
	records portsrepo.IdempotencyReader
}

func NewIdempotencyBehavior(records portsrepo.IdempotencyReader) *IdempotencyBehavior {
	return &IdempotencyBehavior{records: records}
}

func (b *IdempotencyBehavior) Name() string                 { return "idempotency" }
func (b *IdempotencyBehavior) Priority() int                { return PriorityIdempotency }
func (b *IdempotencyBehavior) AppliesTo(d *Descriptor) bool { return d.Kind == KindCommand }

func (b *IdempotencyBehavior) Handle(ctx context.Context, call *Call, next Next) Result {
	clientKey := strings.TrimSpace(call.Command.IdempotencyKey)
	if clientKey == "" {
		// Do not inherit the claim of an enclosing command.
		return next(withIdempotencyClaim(ctx, nil))
	}
	key := scopedIdempotencyKey(call.Actor, clientKey)

	if stored, found, err := b.lookup(ctx, call, key); err != nil {
		return FromError(err)
	} else if found {
		return stored
	}

	res := next(withIdempotencyClaim(ctx, &idempotencyClaim{commandType: call.Command.Type, key: key}))
	if res.Success || res.Kind != ErrorKindConflict {
		return res
	}

	// A conflict may mean a concurrent execution with the same key committed first. Our
	// transaction rolled back; return the winner's result if there is one.
	stored, found, err := b.lookup(ctx, call, key)
	if err != nil {
		return FromError(err)
	}
	if found {
		return stored
	}
	return res
}

// scopedIdempotencyKey binds a client key to the caller, so the same key sent by another
// user or tenant never replays someone else's result.
func scopedIdempotencyKey(actor domain.Actor, key string) string {
	return actor.TenantID + "/" + actor.UserID + "/" + key
}

func (b *IdempotencyBehavior) lookup(ctx context.Context, call *Call, key string) (Result, bool, error) {
	rec, err := b.records.FindIdempotencyRecord(ctx, call.Command.Type, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Result{}, false, nil
		}
		return Result{}, false, err
	}
	value, err := call.Descriptor.decode(rec.SerializedResult)
	if err != nil {
		return Result{}, false, err
	}
	return Success(value), true, nil
}
