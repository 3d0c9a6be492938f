package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type txKey struct{}

// querier is the part of pgxpool.Pool and pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
	// Conn, when set, pins statements outside a transaction to one pooled connection.
	Conn *pgxpool.Conn
}

// db returns the transaction carried by ctx, or the pinned connection or pool outside a
// unit of work.
func (r *BaseRepository) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	if r.Conn != nil {
		return r.Conn
	}
	return r.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	var (
		tx  pgx.Tx
		err error
	)
	if r.Conn != nil {
		tx, err = r.Conn.Begin(ctx)
	} else {
		tx, err = r.Pool.Begin(ctx)
	}
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return mapWriteError(err, "failed to commit transaction")
		}
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// WithinTx runs fn in a transaction carried by its context, joining the one already in ctx
// if any. The commit ignores cancellation of ctx once fn has returned.
func (r *BaseRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = r.Rollback(context.WithoutCancel(ctx), tx)
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = r.Rollback(context.WithoutCancel(ctx), tx)
		return err
	}
	return r.Commit(context.WithoutCancel(ctx), tx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// mapWriteError turns unique violations into apperrors.ErrDuplicate and wraps the rest.
func mapWriteError(err error, message string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s: %w", apperrors.ErrDuplicate, message, err)
	}
	return apperrors.NewAppError(500, message, err)
}

// execBatch sends b and reports the first failing statement.
func execBatch(ctx context.Context, q querier, b *pgx.Batch, message string) error {
	if b.Len() == 0 {
		return nil
	}
	br := q.SendBatch(ctx, b)
	if err := br.Close(); err != nil {
		return mapWriteError(err, message)
	}
	return nil
}
