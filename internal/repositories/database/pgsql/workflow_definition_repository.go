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

type PgxWorkflowDefinitionRepository struct {
	BaseRepository
}

func newPgxWorkflowDefinitionRepository(pool *pgxpool.Pool) portsrepo.WorkflowDefinitionRepositoryFacade {
	return &PgxWorkflowDefinitionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.WorkflowDefinitionRepositoryFacade = (*PgxWorkflowDefinitionRepository)(nil)

func (r *PgxWorkflowDefinitionRepository) FindActiveWorkflowDefinition(ctx context.Context, tenantID, applicationType string) (*domain.WorkflowDefinition, error) {
	query := `
		SELECT workflow_definition_id, tenant_id, application_type, name, is_active,
		       created_at, created_by, last_updated_at, last_updated_by, version
		FROM workflow_definitions
		WHERE tenant_id = $1 AND application_type = $2 AND is_active;
	`
	db := r.db(ctx)
	var m models.WorkflowDefinition
	err := db.QueryRow(ctx, query, tenantID, applicationType).Scan(
		&m.WorkflowDefinitionID,
		&m.TenantID,
		&m.ApplicationType,
		&m.Name,
		&m.IsActive,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active workflow definition for %s", apperrors.ErrNotFound, applicationType)
		}
		return nil, apperrors.NewAppError(500, "failed to find active workflow definition for "+applicationType, err)
	}

	rows, err := db.Query(ctx, `
		SELECT workflow_definition_id, step_number, role, name
		FROM workflow_definition_steps
		WHERE workflow_definition_id = $1
		ORDER BY step_number;
	`, m.WorkflowDefinitionID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query steps of workflow definition "+m.WorkflowDefinitionID, err)
	}
	steps, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.WorkflowStep])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan steps of workflow definition "+m.WorkflowDefinitionID, err)
	}
	return domain.RestoreWorkflowDefinition(mapping.ToDomainWorkflowDefinitionState(m, steps)), nil
}

// SaveWorkflowDefinition relies on the partial unique index over active definitions to
// reject a second active definition per tenant and type. Steps are written once, on insert.
func (r *PgxWorkflowDefinitionRepository) SaveWorkflowDefinition(ctx context.Context, def *domain.WorkflowDefinition) error {
	m, steps := mapping.ToModelWorkflowDefinition(def.State())
	expected := def.Version()
	m.Version = expected + 1

	err := r.WithinTx(ctx, func(ctx context.Context) error {
		db := r.db(ctx)
		if expected > 0 {
			tag, err := db.Exec(ctx, `
				UPDATE workflow_definitions
				SET name = $2, is_active = $3, last_updated_at = $4, last_updated_by = $5, version = $6
				WHERE workflow_definition_id = $1 AND version = $7;
			`, m.WorkflowDefinitionID, m.Name, m.IsActive, m.LastUpdatedAt, m.LastUpdatedBy, m.Version, expected)
			if err != nil {
				return mapWriteError(err, "failed to update workflow definition "+m.WorkflowDefinitionID)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: workflow definition %s is no longer at version %d",
					apperrors.ErrConcurrencyConflict, m.WorkflowDefinitionID, expected)
			}
			return nil
		}

		batch := &pgx.Batch{}
		batch.Queue(`
			INSERT INTO workflow_definitions (workflow_definition_id, tenant_id, application_type, name, is_active,
			       created_at, created_by, last_updated_at, last_updated_by, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
		`, m.WorkflowDefinitionID, m.TenantID, m.ApplicationType, m.Name, m.IsActive,
			m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version)
		for _, st := range steps {
			batch.Queue(`
				INSERT INTO workflow_definition_steps (workflow_definition_id, step_number, role, name)
				VALUES ($1, $2, $3, $4);
			`, st.WorkflowDefinitionID, st.StepNumber, st.Role, st.Name)
		}
		return execBatch(ctx, db, batch, "failed to insert workflow definition "+m.WorkflowDefinitionID)
	})
	if err != nil {
		return err
	}
	def.MarkPersisted(m.Version)
	return nil
}
