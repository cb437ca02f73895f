package memory

import (
	"context"
	"fmt"
	"sync"

	"client-docs-portal/internal/domain/users"
	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/ports/auth"
)

// userRepo guarda organizations, user_roles y users.
type userRepo struct {
	mu    sync.RWMutex
	orgs  map[string]users.Organization
	roles map[string]users.UserRole
	users map[string]users.User
}

func NewUserRepo() users.Repository {
	return &userRepo{
		orgs:  make(map[string]users.Organization),
		roles: make(map[string]users.UserRole),
		users: make(map[string]users.User),
	}
}

func (r *userRepo) CreateOrganization(ctx context.Context, o users.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orgs[o.ID]; exists {
		return fmt.Errorf("memory: organization %s: %w", o.ID, apperr.ErrConflict)
	}
	r.orgs[o.ID] = o
	return nil
}

func (r *userRepo) CreateRole(ctx context.Context, role users.UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.roles[role.UserID]; exists {
		return fmt.Errorf("memory: role for %s: %w", role.UserID, apperr.ErrConflict)
	}
	role.Permissions = clonePermissions(role.Permissions)
	r.roles[role.UserID] = role
	return nil
}

func (r *userRepo) GetRole(ctx context.Context, userID string) (users.UserRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.roles[userID]
	if !ok {
		return users.UserRole{}, ErrNotFound
	}
	role.Permissions = clonePermissions(role.Permissions)
	return role, nil
}

func (r *userRepo) ListRolesByOrganization(ctx context.Context, organizationID string) ([]users.UserRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]users.UserRole, 0)
	for _, role := range r.roles {
		if role.OrganizationID == organizationID {
			role.Permissions = clonePermissions(role.Permissions)
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *userRepo) UpdatePermissions(ctx context.Context, userID string, perms auth.PermissionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[userID]
	if !ok {
		return ErrNotFound
	}
	role.Permissions = clonePermissions(perms)
	r.roles[userID] = role
	return nil
}

func (r *userRepo) DeleteRole(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[userID]; !ok {
		return ErrNotFound
	}
	delete(r.roles, userID)
	return nil
}

func (r *userRepo) CreateUser(ctx context.Context, u users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[u.ID] = u
	return nil
}

func (r *userRepo) DeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *userRepo) EmailsByID(ctx context.Context, ids []string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u.Email
		}
	}
	return out, nil
}

func clonePermissions(in auth.PermissionSet) auth.PermissionSet {
	out := make(auth.PermissionSet, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
