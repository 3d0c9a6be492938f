package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxUserDirectoryRepository struct {
	BaseRepository
}

func newPgxUserDirectoryRepository(pool *pgxpool.Pool) portsrepo.UserDirectoryFacade {
	return &PgxUserDirectoryRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.UserDirectoryFacade = (*PgxUserDirectoryRepository)(nil)

func (r *PgxUserDirectoryRepository) FindRolesByUser(ctx context.Context, tenantID, userID string) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT role FROM user_roles
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY role;
	`, tenantID, userID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query roles of user "+userID, err)
	}
	roles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan roles of user "+userID, err)
	}
	return roles, nil
}

func (r *PgxUserDirectoryRepository) FindUsersByRole(ctx context.Context, tenantID, role string) ([]domain.UserRole, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT tenant_id, user_id, user_name, role FROM user_roles
		WHERE tenant_id = $1 AND role = $2
		ORDER BY user_id;
	`, tenantID, role)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query holders of role "+role, err)
	}
	defer rows.Close()

	var users []domain.UserRole
	for rows.Next() {
		var ur domain.UserRole
		if err := rows.Scan(&ur.TenantID, &ur.UserID, &ur.UserName, &ur.Role); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan holder of role "+role, err)
		}
		users = append(users, ur)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate holders of role "+role, err)
	}
	return users, nil
}

func (r *PgxUserDirectoryRepository) GrantRole(ctx context.Context, ur domain.UserRole) error {
	if ur.TenantID == "" || ur.UserID == "" || ur.Role == "" {
		return fmt.Errorf("%w: tenant, user and role are required", apperrors.ErrValidation)
	}
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO user_roles (tenant_id, user_id, user_name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, user_id, role) DO UPDATE SET user_name = EXCLUDED.user_name;
	`, ur.TenantID, ur.UserID, ur.UserName, ur.Role)
	if err != nil {
		return apperrors.NewAppError(500, "failed to grant role "+ur.Role+" to "+ur.UserID, err)
	}
	return nil
}

func (r *PgxUserDirectoryRepository) RevokeRole(ctx context.Context, tenantID, userID, role string) error {
	_, err := r.db(ctx).Exec(ctx, `
		DELETE FROM user_roles WHERE tenant_id = $1 AND user_id = $2 AND role = $3;
	`, tenantID, userID, role)
	if err != nil {
		return apperrors.NewAppError(500, "failed to revoke role "+role+" from "+userID, err)
	}
	return nil
}
