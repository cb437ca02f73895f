package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"client-docs-portal/internal/domain/users"
	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/ports/auth"

	"github.com/jackc/pgx/v5/pgconn"
)

// UsersRepo cubre organizations, user_roles y users.
type UsersRepo struct {
	db *sql.DB
}

var _ users.Repository = (*UsersRepo)(nil)

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

const roleColumns = `user_id, organization_id, role, can_create_clients, can_send_messages, can_manage_documents, created_at`

func (r *UsersRepo) CreateOrganization(ctx context.Context, o users.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, created_at) VALUES ($1,$2,$3)
	`, o.ID, o.Name, o.CreatedAt)
	return conflict(err)
}

func (r *UsersRepo) CreateRole(ctx context.Context, role users.UserRole) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (`+roleColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		role.UserID,
		role.OrganizationID,
		string(role.Role),
		role.Permissions.Has(auth.PermCreateClients),
		role.Permissions.Has(auth.PermSendMessages),
		role.Permissions.Has(auth.PermManageDocuments),
		role.CreatedAt,
	)
	return conflict(err)
}

func (r *UsersRepo) GetRole(ctx context.Context, userID string) (users.UserRole, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM user_roles WHERE user_id = $1`, userID)
	role, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return users.UserRole{}, ErrNotFound
	}
	return role, err
}

func (r *UsersRepo) ListRolesByOrganization(ctx context.Context, organizationID string) ([]users.UserRole, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+roleColumns+` FROM user_roles WHERE organization_id = $1 ORDER BY created_at ASC
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]users.UserRole, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *UsersRepo) UpdatePermissions(ctx context.Context, userID string, perms auth.PermissionSet) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_roles
		SET can_create_clients = $2, can_send_messages = $3, can_manage_documents = $4
		WHERE user_id = $1
	`,
		userID,
		perms.Has(auth.PermCreateClients),
		perms.Has(auth.PermSendMessages),
		perms.Has(auth.PermManageDocuments),
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *UsersRepo) DeleteRole(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *UsersRepo) CreateUser(ctx context.Context, u users.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, created_at) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
	`, u.ID, u.Email, u.CreatedAt)
	return err
}

func (r *UsersRepo) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *UsersRepo) EmailsByID(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, email FROM users WHERE id = ANY($1::text[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		out[id] = email
	}
	return out, rows.Err()
}

func scanRole(s rowScanner) (users.UserRole, error) {
	var role users.UserRole
	var r string
	var canCreate, canSend, canManage bool
	if err := s.Scan(&role.UserID, &role.OrganizationID, &r, &canCreate, &canSend, &canManage, &role.CreatedAt); err != nil {
		return users.UserRole{}, err
	}
	role.Role = auth.Role(r)
	role.Permissions = auth.PermissionSet{}
	if canCreate {
		role.Permissions[auth.PermCreateClients] = true
	}
	if canSend {
		role.Permissions[auth.PermSendMessages] = true
	}
	if canManage {
		role.Permissions[auth.PermManageDocuments] = true
	}
	return role, nil
}

// conflict traduce unique_violation a apperr.ErrConflict.
func conflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("postgres: %s: %w", pgErr.ConstraintName, apperr.ErrConflict)
	}
	return err
}
