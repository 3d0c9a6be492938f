package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/SscSPs/procureflow/internal/models"
	"github.com/SscSPs/procureflow/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const outboxColumns = `outbox_message_id, type, content, occurred_at_utc, processed_at_utc, error, retry_count`

type PgxOutboxRepository struct {
	BaseRepository
}

func newPgxOutboxRepository(pool *pgxpool.Pool) *PgxOutboxRepository {
	return &PgxOutboxRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.OutboxRepositoryFacade = (*PgxOutboxRepository)(nil)

// NewOutboxStoreFactory hands the relay an outbox repository pinned to one pooled
// connection per cycle. The release func returns the connection.
func NewOutboxStoreFactory(pool *pgxpool.Pool) portsrepo.OutboxStoreFactory {
	return func(ctx context.Context) (portsrepo.OutboxRepositoryFacade, func(), error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to acquire connection for outbox relay", err)
		}
		repo := &PgxOutboxRepository{BaseRepository: BaseRepository{Pool: pool, Conn: conn}}
		return repo, conn.Release, nil
	}
}

func (r *PgxOutboxRepository) AppendOutboxMessages(ctx context.Context, msgs []domain.OutboxMessage) error {
	batch := &pgx.Batch{}
	for _, msg := range msgs {
		m := mapping.ToModelOutboxMessage(msg)
		batch.Queue(`
			INSERT INTO outbox_messages (`+outboxColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7);
		`, m.OutboxMessageID, m.Type, m.Content, m.OccurredAtUTC, m.ProcessedAtUTC, m.Error, m.RetryCount)
	}
	return execBatch(ctx, r.db(ctx), batch, "failed to append outbox messages")
}

func (r *PgxOutboxRepository) FindUnprocessedOutboxMessages(ctx context.Context, limit, maxRetries int) ([]domain.OutboxMessage, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_messages
		WHERE processed_at_utc IS NULL AND ($2::int = 0 OR retry_count < $2::int)
		ORDER BY occurred_at_utc, outbox_message_id
		LIMIT NULLIF($1::int, 0);
	`
	return r.queryOutbox(ctx, query, limit, maxRetries)
}

func (r *PgxOutboxRepository) ListOutboxMessages(ctx context.Context, eventType string) ([]domain.OutboxMessage, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_messages
		WHERE type = $1
		ORDER BY occurred_at_utc, outbox_message_id;
	`
	return r.queryOutbox(ctx, query, eventType)
}

func (r *PgxOutboxRepository) queryOutbox(ctx context.Context, query string, args ...any) ([]domain.OutboxMessage, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query outbox messages", err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.OutboxMessage])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan outbox messages", err)
	}
	out := make([]domain.OutboxMessage, len(ms))
	for i, m := range ms {
		out[i] = mapping.ToDomainOutboxMessage(m)
	}
	return out, nil
}

func (r *PgxOutboxRepository) MarkOutboxMessageProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	db := r.db(ctx)
	tag, err := db.Exec(ctx, `
		UPDATE outbox_messages
		SET processed_at_utc = $2
		WHERE outbox_message_id = $1 AND processed_at_utc IS NULL;
	`, id, at.UTC())
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to mark outbox message "+id+" processed", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	exists, err := r.outboxMessageExists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("%w: outbox message %s", apperrors.ErrNotFound, id)
	}
	return false, nil
}

func (r *PgxOutboxRepository) MarkOutboxMessageFailed(ctx context.Context, id string, deliveryErr string) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE outbox_messages
		SET error = $2, retry_count = retry_count + 1
		WHERE outbox_message_id = $1 AND processed_at_utc IS NULL;
	`, id, deliveryErr)
	if err != nil {
		return apperrors.NewAppError(500, "failed to record delivery failure of outbox message "+id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	exists, err := r.outboxMessageExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: outbox message %s", apperrors.ErrNotFound, id)
	}
	return nil
}

func (r *PgxOutboxRepository) outboxMessageExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM outbox_messages WHERE outbox_message_id = $1);`, id).Scan(&exists)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to look up outbox message "+id, err)
	}
	return exists, nil
}
