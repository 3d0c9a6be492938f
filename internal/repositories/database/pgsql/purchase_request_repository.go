package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/SscSPs/procureflow/internal/models"
	"github.com/SscSPs/procureflow/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxPurchaseRequestRepository struct {
	BaseRepository
}

func newPgxPurchaseRequestRepository(pool *pgxpool.Pool) portsrepo.PurchaseRequestRepositoryFacade {
	return &PgxPurchaseRequestRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PurchaseRequestRepositoryFacade = (*PgxPurchaseRequestRepository)(nil)

// FindPurchaseRequestByID loads the request row with its items, approval steps and decisions.
func (r *PgxPurchaseRequestRepository) FindPurchaseRequestByID(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
	query := `
		SELECT purchase_request_id, tenant_id, requester_id, requester_name, title, description,
		       status, current_step, created_at, created_by, last_updated_at, last_updated_by, version
		FROM purchase_requests
		WHERE purchase_request_id = $1;
	`
	db := r.db(ctx)
	var m models.PurchaseRequest
	err := db.QueryRow(ctx, query, id).Scan(
		&m.PurchaseRequestID,
		&m.TenantID,
		&m.RequesterID,
		&m.RequesterName,
		&m.Title,
		&m.Description,
		&m.Status,
		&m.CurrentStep,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: purchase request %s", apperrors.ErrNotFound, id)
		}
		return nil, apperrors.NewAppError(500, "failed to find purchase request "+id, err)
	}

	rows, err := db.Query(ctx, `
		SELECT purchase_request_id, line_number, description, quantity, unit_price
		FROM purchase_request_items
		WHERE purchase_request_id = $1
		ORDER BY line_number;
	`, id)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query items of purchase request "+id, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.PurchaseRequestItem])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan items of purchase request "+id, err)
	}

	rows, err = db.Query(ctx, `
		SELECT purchase_request_id, step_number, approver_id, approver_name, approver_role
		FROM purchase_request_approval_steps
		WHERE purchase_request_id = $1
		ORDER BY step_number;
	`, id)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query approval steps of purchase request "+id, err)
	}
	steps, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.ApprovalStep])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan approval steps of purchase request "+id, err)
	}

	decisions, err := findDecisions(ctx, db, domain.EntityPurchaseRequest, id)
	if err != nil {
		return nil, err
	}

	return domain.RestorePurchaseRequest(mapping.ToDomainPurchaseRequestState(m, items, steps, decisions))
}

// SavePurchaseRequest inserts or version-checks and updates the request, then replaces its
// child rows.
func (r *PgxPurchaseRequestRepository) SavePurchaseRequest(ctx context.Context, pr *domain.PurchaseRequest) error {
	m, items, steps := mapping.ToModelPurchaseRequest(pr.State())
	expected := pr.Version()
	m.Version = expected + 1

	err := r.WithinTx(ctx, func(ctx context.Context) error {
		db := r.db(ctx)
		if expected == 0 {
			_, err := db.Exec(ctx, `
				INSERT INTO purchase_requests (purchase_request_id, tenant_id, requester_id, requester_name, title, description,
				       status, current_step, created_at, created_by, last_updated_at, last_updated_by, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
			`, m.PurchaseRequestID, m.TenantID, m.RequesterID, m.RequesterName, m.Title, m.Description,
				m.Status, m.CurrentStep, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: purchase request %s already exists", apperrors.ErrConcurrencyConflict, m.PurchaseRequestID)
				}
				return apperrors.NewAppError(500, "failed to insert purchase request "+m.PurchaseRequestID, err)
			}
		} else {
			tag, err := db.Exec(ctx, `
				UPDATE purchase_requests
				SET title = $2, description = $3, status = $4, current_step = $5,
				    last_updated_at = $6, last_updated_by = $7, version = $8
				WHERE purchase_request_id = $1 AND version = $9;
			`, m.PurchaseRequestID, m.Title, m.Description, m.Status, m.CurrentStep,
				m.LastUpdatedAt, m.LastUpdatedBy, m.Version, expected)
			if err != nil {
				return apperrors.NewAppError(500, "failed to update purchase request "+m.PurchaseRequestID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: purchase request %s is no longer at version %d",
					apperrors.ErrConcurrencyConflict, m.PurchaseRequestID, expected)
			}
		}

		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM purchase_request_items WHERE purchase_request_id = $1;`, m.PurchaseRequestID)
		batch.Queue(`DELETE FROM purchase_request_approval_steps WHERE purchase_request_id = $1;`, m.PurchaseRequestID)
		for _, it := range items {
			batch.Queue(`
				INSERT INTO purchase_request_items (purchase_request_id, line_number, description, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5);
			`, it.PurchaseRequestID, it.LineNumber, it.Description, it.Quantity, it.UnitPrice)
		}
		for _, st := range steps {
			batch.Queue(`
				INSERT INTO purchase_request_approval_steps (purchase_request_id, step_number, approver_id, approver_name, approver_role)
				VALUES ($1, $2, $3, $4, $5);
			`, st.PurchaseRequestID, st.StepNumber, st.ApproverID, st.ApproverName, st.ApproverRole)
		}
		queueDecisions(batch, mapping.ToModelDecisions(domain.EntityPurchaseRequest, m.PurchaseRequestID, pr.State().Decisions))
		return execBatch(ctx, db, batch, "failed to write child rows of purchase request "+m.PurchaseRequestID)
	})
	if err != nil {
		return err
	}
	pr.MarkPersisted(m.Version)
	return nil
}

func findDecisions(ctx context.Context, db querier, entityType, entityID string) ([]models.Decision, error) {
	rows, err := db.Query(ctx, `
		SELECT entity_type, entity_id, seq, step_number, action, actor_id, actor_name, comment, decided_at
		FROM approval_decisions
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY seq;
	`, entityType, entityID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query decisions of "+entityType+" "+entityID, err)
	}
	decisions, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Decision])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan decisions of "+entityType+" "+entityID, err)
	}
	return decisions, nil
}

// queueDecisions adds the history rows not stored yet. Decisions are append-only.
func queueDecisions(batch *pgx.Batch, decisions []models.Decision) {
	for _, d := range decisions {
		batch.Queue(`
			INSERT INTO approval_decisions (entity_type, entity_id, seq, step_number, action, actor_id, actor_name, comment, decided_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (entity_type, entity_id, seq) DO NOTHING;
		`, d.EntityType, d.EntityID, d.Seq, d.StepNumber, d.Action, d.ActorID, d.ActorName, d.Comment, d.DecidedAt)
	}
}
