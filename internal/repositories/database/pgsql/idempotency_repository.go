package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxIdempotencyRepository struct {
	BaseRepository
}

func newPgxIdempotencyRepository(pool *pgxpool.Pool) portsrepo.IdempotencyRepositoryFacade {
	return &PgxIdempotencyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.IdempotencyRepositoryFacade = (*PgxIdempotencyRepository)(nil)

func (r *PgxIdempotencyRepository) FindIdempotencyRecord(ctx context.Context, commandType, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	err := r.db(ctx).QueryRow(ctx, `
		SELECT command_type, idempotency_key, serialized_result, created_at
		FROM idempotency_records
		WHERE command_type = $1 AND idempotency_key = $2;
	`, commandType, key).Scan(&rec.CommandType, &rec.Key, &rec.SerializedResult, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: idempotency record %s/%s", apperrors.ErrNotFound, commandType, key)
		}
		return nil, apperrors.NewAppError(500, "failed to find idempotency record", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// SaveIdempotencyRecord uses ON CONFLICT so a lost race does not abort the surrounding
// transaction before the caller decides what to do.
func (r *PgxIdempotencyRepository) SaveIdempotencyRecord(ctx context.Context, rec domain.IdempotencyRecord) error {
	tag, err := r.db(ctx).Exec(ctx, `
		INSERT INTO idempotency_records (command_type, idempotency_key, serialized_result, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (command_type, idempotency_key) DO NOTHING;
	`, rec.CommandType, rec.Key, []byte(rec.SerializedResult), rec.CreatedAt)
	if err != nil {
		return mapWriteError(err, "failed to save idempotency record")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: idempotency record %s/%s", apperrors.ErrDuplicate, rec.CommandType, rec.Key)
	}
	return nil
}
