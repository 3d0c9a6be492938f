package pgsql

import (
	"context"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/SscSPs/procureflow/internal/models"
	"github.com/SscSPs/procureflow/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAuditLogRepository struct {
	BaseRepository
}

func newPgxAuditLogRepository(pool *pgxpool.Pool) portsrepo.AuditLogRepositoryFacade {
	return &PgxAuditLogRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AuditLogRepositoryFacade = (*PgxAuditLogRepository)(nil)

func (r *PgxAuditLogRepository) AppendAuditLogEntries(ctx context.Context, entries []domain.AuditLogEntry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		m := mapping.ToModelAuditLogEntry(e)
		batch.Queue(`
			INSERT INTO audit_log_entries (audit_log_entry_id, user_id, user_name, tenant_id, action, entity_type, entity_id,
			       old_values, new_values, correlation_id, request_id, timestamp_utc)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
		`, m.AuditLogEntryID, m.UserID, m.UserName, m.TenantID, m.Action, m.EntityType, m.EntityID,
			m.OldValues, m.NewValues, m.CorrelationID, m.RequestID, m.TimestampUTC)
	}
	return execBatch(ctx, r.db(ctx), batch, "failed to append audit log entries")
}

func (r *PgxAuditLogRepository) ListAuditLogEntries(ctx context.Context, entityType, entityID string) ([]domain.AuditLogEntry, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT audit_log_entry_id, user_id, user_name, tenant_id, action, entity_type, entity_id,
		       old_values, new_values, correlation_id, request_id, timestamp_utc
		FROM audit_log_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY timestamp_utc, audit_log_entry_id;
	`, entityType, entityID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query audit log of "+entityType+" "+entityID, err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.AuditLogEntry])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan audit log of "+entityType+" "+entityID, err)
	}
	out := make([]domain.AuditLogEntry, len(ms))
	for i, m := range ms {
		out[i] = mapping.ToDomainAuditLogEntry(m)
	}
	return out, nil
}
