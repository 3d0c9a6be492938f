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

type PgxApplicationRepository struct {
	BaseRepository
}

func newPgxApplicationRepository(pool *pgxpool.Pool) portsrepo.ApplicationRepositoryFacade {
	return &PgxApplicationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ApplicationRepositoryFacade = (*PgxApplicationRepository)(nil)

func (r *PgxApplicationRepository) FindApplicationByID(ctx context.Context, id string) (*domain.ApprovalApplication, error) {
	query := `
		SELECT application_id, tenant_id, applicant_id, applicant_name, application_type, title, content,
		       status, current_step, total_steps, created_at, created_by, last_updated_at, last_updated_by, version
		FROM approval_applications
		WHERE application_id = $1;
	`
	db := r.db(ctx)
	var m models.Application
	err := db.QueryRow(ctx, query, id).Scan(
		&m.ApplicationID,
		&m.TenantID,
		&m.ApplicantID,
		&m.ApplicantName,
		&m.ApplicationType,
		&m.Title,
		&m.Content,
		&m.Status,
		&m.CurrentStep,
		&m.TotalSteps,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: application %s", apperrors.ErrNotFound, id)
		}
		return nil, apperrors.NewAppError(500, "failed to find application "+id, err)
	}

	decisions, err := findDecisions(ctx, db, domain.EntityApplication, id)
	if err != nil {
		return nil, err
	}
	return domain.RestoreApprovalApplication(mapping.ToDomainApplicationState(m, decisions)), nil
}

func (r *PgxApplicationRepository) SaveApplication(ctx context.Context, app *domain.ApprovalApplication) error {
	state := app.State()
	m := mapping.ToModelApplication(state)
	expected := app.Version()
	m.Version = expected + 1

	err := r.WithinTx(ctx, func(ctx context.Context) error {
		db := r.db(ctx)
		if expected == 0 {
			_, err := db.Exec(ctx, `
				INSERT INTO approval_applications (application_id, tenant_id, applicant_id, applicant_name, application_type,
				       title, content, status, current_step, total_steps,
				       created_at, created_by, last_updated_at, last_updated_by, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
			`, m.ApplicationID, m.TenantID, m.ApplicantID, m.ApplicantName, m.ApplicationType,
				m.Title, m.Content, m.Status, m.CurrentStep, m.TotalSteps,
				m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: application %s already exists", apperrors.ErrConcurrencyConflict, m.ApplicationID)
				}
				return apperrors.NewAppError(500, "failed to insert application "+m.ApplicationID, err)
			}
		} else {
			tag, err := db.Exec(ctx, `
				UPDATE approval_applications
				SET title = $2, content = $3, status = $4, current_step = $5, total_steps = $6,
				    last_updated_at = $7, last_updated_by = $8, version = $9
				WHERE application_id = $1 AND version = $10;
			`, m.ApplicationID, m.Title, m.Content, m.Status, m.CurrentStep, m.TotalSteps,
				m.LastUpdatedAt, m.LastUpdatedBy, m.Version, expected)
			if err != nil {
				return apperrors.NewAppError(500, "failed to update application "+m.ApplicationID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: application %s is no longer at version %d",
					apperrors.ErrConcurrencyConflict, m.ApplicationID, expected)
			}
		}

		batch := &pgx.Batch{}
		queueDecisions(batch, mapping.ToModelDecisions(domain.EntityApplication, m.ApplicationID, state.Decisions))
		return execBatch(ctx, db, batch, "failed to write decisions of application "+m.ApplicationID)
	})
	if err != nil {
		return err
	}
	app.MarkPersisted(m.Version)
	return nil
}
