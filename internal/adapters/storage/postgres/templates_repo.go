package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"client-docs-portal/internal/domain/templates"
)

type TemplatesRepo struct {
	db *sql.DB
}

var _ templates.Repository = (*TemplatesRepo)(nil)

func NewTemplatesRepo(db *sql.DB) *TemplatesRepo {
	return &TemplatesRepo{db: db}
}

const templateColumns = `id, user_id, nombre, documentos, created_at, updated_at`

func (r *TemplatesRepo) Create(ctx context.Context, t templates.Template) error {
	docs, err := encodeNames(t.Documents)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO templates (`+templateColumns+`) VALUES ($1,$2,$3,$4,$5,$6)
	`, t.ID, t.UserID, t.Name, docs, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *TemplatesRepo) GetByID(ctx context.Context, id string) (templates.Template, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return templates.Template{}, ErrNotFound
	}
	return t, err
}

func (r *TemplatesRepo) ListByUser(ctx context.Context, userID string) ([]templates.Template, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+templateColumns+` FROM templates WHERE user_id = $1 ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]templates.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplatesRepo) Update(ctx context.Context, t templates.Template) error {
	docs, err := encodeNames(t.Documents)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE templates SET nombre = $2, documentos = $3, updated_at = $4 WHERE id = $1
	`, t.ID, t.Name, docs, t.UpdatedAt)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *TemplatesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func scanTemplate(s rowScanner) (templates.Template, error) {
	var t templates.Template
	var raw []byte
	if err := s.Scan(&t.ID, &t.UserID, &t.Name, &raw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return templates.Template{}, err
	}
	t.Documents = []string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.Documents); err != nil {
			return templates.Template{}, fmt.Errorf("template %s: decode documentos: %w", t.ID, err)
		}
	}
	return t, nil
}

func encodeNames(names []string) ([]byte, error) {
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}
