package users

import (
	"context"

	"client-docs-portal/internal/ports/auth"
)

type Repository interface {
	CreateOrganization(ctx context.Context, o Organization) error

	// CreateRole falla con apperr.ErrConflict si el usuario ya tiene rol.
	CreateRole(ctx context.Context, r UserRole) error
	GetRole(ctx context.Context, userID string) (UserRole, error)
	ListRolesByOrganization(ctx context.Context, organizationID string) ([]UserRole, error)
	// UpdatePermissions reemplaza los tres flags; el rol no cambia.
	UpdatePermissions(ctx context.Context, userID string, perms auth.PermissionSet) error
	DeleteRole(ctx context.Context, userID string) error

	CreateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, id string) error
	EmailsByID(ctx context.Context, ids []string) (map[string]string, error)
}
