package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"client-docs-portal/internal/domain/clients"
)

type ClientsRepo struct {
	db *sql.DB
}

var _ clients.Repository = (*ClientsRepo)(nil)

func NewClientsRepo(db *sql.DB) *ClientsRepo {
	return &ClientsRepo{db: db}
}

const clientColumns = `id, nombre, email, telefono, organization_id, created_by, created_at, updated_at`

func (r *ClientsRepo) Create(ctx context.Context, c clients.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clientes (`+clientColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.OrganizationID,
		c.CreatedBy,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *ClientsRepo) GetByID(ctx context.Context, id string) (clients.Client, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return clients.Client{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clientes WHERE id = $1`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return clients.Client{}, ErrNotFound
	}
	return c, err
}

func (r *ClientsRepo) ListByOrganization(ctx context.Context, organizationID string) ([]clients.Client, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clientes
		WHERE organization_id = $1
		ORDER BY created_at DESC, id ASC
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]clients.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ClientsRepo) Update(ctx context.Context, c clients.Client) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE clientes SET nombre = $2, email = $3, telefono = $4, updated_at = $5 WHERE id = $1
	`, c.ID, c.Name, c.Email, c.Phone, c.UpdatedAt)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *ClientsRepo) DeleteByCreator(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clientes WHERE created_by = $1`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanClient(s rowScanner) (clients.Client, error) {
	var c clients.Client
	err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.OrganizationID, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
