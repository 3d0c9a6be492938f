package pipeline

import (
	"context"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
)

// AuditLogBehavior writes one audit entry per aggregate saved by a successful command,
// inside the open transaction.
type AuditLogBehavior struct {
	audit portsrepo.AuditLogWriter
	ids   portssvc.IDGenerator
	clock portssvc.Clock
}

func NewAuditLogBehavior(audit portsrepo.AuditLogWriter, ids portssvc.IDGenerator, clock portssvc.Clock) *AuditLogBehavior {
	return &AuditLogBehavior{audit: audit, ids: ids, clock: clock}
}

func (b *AuditLogBehavior) Name() string                 { return "audit_log" }
func (b *AuditLogBehavior) Priority() int                { return PriorityAuditLog }
func (b *AuditLogBehavior) AppliesTo(d *Descriptor) bool { return d.Kind == KindCommand }

func (b *AuditLogBehavior) Handle(ctx context.Context, call *Call, next Next) Result {
	res := next(ctx)
	if !res.Success {
		return res
	}
	scope := ScopeFrom(ctx)
	if scope == nil {
		return res
	}
	changes := scope.Changes()
	if len(changes) == 0 {
		return res
	}

	var tenantID *string
	if call.Actor.TenantID != "" {
		t := call.Actor.TenantID
		tenantID = &t
	}
	now := b.clock.Now().UTC()
	entries := make([]domain.AuditLogEntry, 0, len(changes))
	for _, c := range changes {
		entries = append(entries, domain.AuditLogEntry{
			ID:            b.ids.NewID(),
			UserID:        call.Actor.UserID,
			UserName:      call.Actor.UserName,
			TenantID:      tenantID,
			Action:        call.Command.Type,
			EntityType:    c.EntityType,
			EntityID:      c.EntityID,
			OldValues:     c.OldValues,
			NewValues:     c.NewValues,
			CorrelationID: call.Actor.CorrelationID,
			RequestID:     call.Actor.RequestID,
			TimestampUTC:  now,
		})
	}
	if err := b.audit.AppendAuditLogEntries(ctx, entries); err != nil {
		return FromError(apperrors.NewAppError(500, "failed to write audit log", err))
	}
	return res
}
