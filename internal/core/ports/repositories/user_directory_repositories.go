package repositories

import (
	"context"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// UserDirectoryReader answers who holds which role in a tenant.
type UserDirectoryReader interface {
	// FindRolesByUser returns the roles the user currently holds in the tenant.
	FindRolesByUser(ctx context.Context, tenantID, userID string) ([]string, error)

	// FindUsersByRole returns the holders of role in the tenant ordered by user id.
	FindUsersByRole(ctx context.Context, tenantID, role string) ([]domain.UserRole, error)
}

// UserDirectoryWriter maintains role assignments.
type UserDirectoryWriter interface {
	GrantRole(ctx context.Context, ur domain.UserRole) error
	RevokeRole(ctx context.Context, tenantID, userID, role string) error
}

// UserDirectoryFacade combines all user directory operations.
type UserDirectoryFacade interface {
	UserDirectoryReader
	UserDirectoryWriter
}
