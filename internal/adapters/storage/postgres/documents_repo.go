package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"client-docs-portal/internal/domain/documents"
)

type DocumentsRepo struct {
	db *sql.DB
}

var _ documents.Repository = (*DocumentsRepo)(nil)

func NewDocumentsRepo(db *sql.DB) *DocumentsRepo {
	return &DocumentsRepo{db: db}
}

const documentColumns = `id, cliente_id, nombre, orden, archivos, created_at, updated_at`

// Append calcula orden = cantidad actual dentro del mismo INSERT.
func (r *DocumentsRepo) Append(ctx context.Context, d documents.DocumentRequest) (documents.DocumentRequest, error) {
	archivos, err := encodeAttachments(d.Attachments)
	if err != nil {
		return documents.DocumentRequest{}, err
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO documentos_cliente (`+documentColumns+`)
		SELECT $1, $2, $3, COUNT(*), $4, $5, $6
		FROM documentos_cliente WHERE cliente_id = $2
		RETURNING orden
	`,
		d.ID,
		d.ClientID,
		d.Name,
		archivos,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err := row.Scan(&d.Order); err != nil {
		return documents.DocumentRequest{}, err
	}
	return d, nil
}

func (r *DocumentsRepo) CreateMany(ctx context.Context, ds []documents.DocumentRequest) error {
	if len(ds) == 0 {
		return nil
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, d := range ds {
			archivos, err := encodeAttachments(d.Attachments)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO documentos_cliente (`+documentColumns+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
			`, d.ID, d.ClientID, d.Name, d.Order, archivos, d.CreatedAt, d.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *DocumentsRepo) GetByID(ctx context.Context, id string) (documents.DocumentRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return documents.DocumentRequest{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documentos_cliente WHERE id = $1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return documents.DocumentRequest{}, ErrNotFound
	}
	return d, err
}

func (r *DocumentsRepo) ListByClient(ctx context.Context, clientID string) ([]documents.DocumentRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documentos_cliente
		WHERE cliente_id = $1
		ORDER BY orden ASC, created_at ASC, id ASC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]documents.DocumentRequest, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DocumentsRepo) Rename(ctx context.Context, id, name string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE documentos_cliente SET nombre = $2, updated_at = $3 WHERE id = $1`, id, name, at)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *DocumentsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documentos_cliente WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// SetOrder escribe el orden completo en una transacción: o se aplican todas
// las posiciones o ninguna.
func (r *DocumentsRepo) SetOrder(ctx context.Context, clientID string, orderedIDs []string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for i, id := range orderedIDs {
			res, err := tx.ExecContext(ctx, `
				UPDATE documentos_cliente SET orden = $1 WHERE id = $2 AND cliente_id = $3
			`, i, id, clientID)
			if err != nil {
				return err
			}
			if err := expectOne(res); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateAttachments bloquea la fila (FOR UPDATE) mientras fn decide.
func (r *DocumentsRepo) UpdateAttachments(ctx context.Context, id string, at time.Time, fn func([]documents.Attachment) ([]documents.Attachment, error)) (documents.DocumentRequest, error) {
	var out documents.DocumentRequest
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documentos_cliente WHERE id = $1 FOR UPDATE`, id)
		d, err := scanDocument(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		next, err := fn(d.Attachments)
		if err != nil {
			return err
		}
		archivos, err := encodeAttachments(next)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE documentos_cliente SET archivos = $2, updated_at = $3 WHERE id = $1
		`, id, archivos, at); err != nil {
			return err
		}

		d.Attachments = next
		d.UpdatedAt = at
		out = d
		return nil
	})
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (documents.DocumentRequest, error) {
	var d documents.DocumentRequest
	var archivos []byte
	if err := s.Scan(&d.ID, &d.ClientID, &d.Name, &d.Order, &archivos, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return documents.DocumentRequest{}, err
	}
	atts, err := decodeAttachments(archivos)
	if err != nil {
		return documents.DocumentRequest{}, fmt.Errorf("document %s: %w", d.ID, err)
	}
	d.Attachments = atts
	return d, nil
}

func encodeAttachments(in []documents.Attachment) ([]byte, error) {
	if in == nil {
		in = []documents.Attachment{}
	}
	return json.Marshal(in)
}

func decodeAttachments(raw []byte) ([]documents.Attachment, error) {
	out := []documents.Attachment{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode archivos: %w", err)
	}
	return out, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
