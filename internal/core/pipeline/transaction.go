package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
)

// errRolledBack makes the transaction manager roll back after an unsuccessful result.
var errRolledBack = errors.New("unit of work rolled back")

// TransactionBehavior runs the rest of the chain in one transaction. On success it writes
// the outbox rows for every event drained into the scope and the idempotency record, then
// commits. Any failure rolls everything back. A call made while a unit of work is already
// open joins its transaction, and its events are written by the outer call.
type TransactionBehavior struct {
	txm         portsrepo.TransactionManager
	outbox      portsrepo.OutboxWriter
	idempotency portsrepo.IdempotencyWriter
	ids         portssvc.IDGenerator
	clock       portssvc.Clock
	onCommit    []func()
}

// TransactionOption configures a TransactionBehavior.
type TransactionOption func(*TransactionBehavior)

// WithCommitHook registers fn to run after every committed command.
func WithCommitHook(fn func()) TransactionOption {
	return func(b *TransactionBehavior) {
		b.onCommit = append(b.onCommit, fn)
	}
}

func NewTransactionBehavior(
	txm portsrepo.TransactionManager,
	outbox portsrepo.OutboxWriter,
	idempotency portsrepo.IdempotencyWriter,
	ids portssvc.IDGenerator,
	clock portssvc.Clock,
	opts ...TransactionOption,
) *TransactionBehavior {
	b := &TransactionBehavior{txm: txm, outbox: outbox, idempotency: idempotency, ids: ids, clock: clock}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *TransactionBehavior) Name() string                 { return "transaction" }
func (b *TransactionBehavior) Priority() int                { return PriorityTransaction }
func (b *TransactionBehavior) AppliesTo(d *Descriptor) bool { return true }

func (b *TransactionBehavior) Handle(ctx context.Context, call *Call, next Next) Result {
	claim := idempotencyClaimFrom(ctx)

	if parent := ScopeFrom(ctx); parent != nil {
		// Joined call: audit its own changes, hand its events to the outer unit of work.
		childCtx, child := WithScope(ctx)
		res := next(childCtx)
		if !res.Success || call.Descriptor.Kind != KindCommand {
			return res
		}
		parent.adoptEvents(child.Events())
		if claim != nil {
			if err := b.saveIdempotencyRecord(ctx, claim, res); err != nil {
				return FromError(err)
			}
		}
		return res
	}

	ctx, scope := WithScope(ctx)
	var res Result
	err := b.txm.WithinTx(ctx, func(txCtx context.Context) error {
		res = next(txCtx)
		if !res.Success {
			return errRolledBack
		}
		if call.Descriptor.Kind != KindCommand {
			return nil
		}
		if err := b.writeOutbox(txCtx, scope.Events()); err != nil {
			return err
		}
		if claim != nil {
			return b.saveIdempotencyRecord(txCtx, claim, res)
		}
		return nil
	})
	switch {
	case err == nil:
		if call.Descriptor.Kind == KindCommand {
			for _, fn := range b.onCommit {
				fn()
			}
		}
		return res
	case errors.Is(err, errRolledBack):
		return res
	default:
		return FromError(err)
	}
}

func (b *TransactionBehavior) writeOutbox(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]domain.OutboxMessage, 0, len(events))
	for _, e := range events {
		msg, err := domain.NewOutboxMessage(b.ids.NewID(), e)
		if err != nil {
			return apperrors.NewAppError(500, "failed to serialize event "+e.EventType(), err)
		}
		msgs = append(msgs, msg)
	}
	return b.outbox.AppendOutboxMessages(ctx, msgs)
}

func (b *TransactionBehavior) saveIdempotencyRecord(ctx context.Context, claim *idempotencyClaim, res Result) error {
	data, err := json.Marshal(res.Value)
	if err != nil {
		return apperrors.NewAppError(500, "failed to serialize command result", err)
	}
	err = b.idempotency.SaveIdempotencyRecord(ctx, domain.IdempotencyRecord{
		Key:              claim.key,
		CommandType:      claim.commandType,
		SerializedResult: data,
		CreatedAt:        b.clock.Now().UTC(),
	})
	if errors.Is(err, apperrors.ErrDuplicate) {
		return ErrIdempotencyRace
	}
	return err
}
