package postgres

import (
	"context"
	"database/sql"
	"errors"

	"client-docs-portal/internal/domain/accesstokens"
)

// TokensRepo cubre client_access (portal) y shared_document_access (links).
type TokensRepo struct {
	db *sql.DB
}

var _ accesstokens.Repository = (*TokensRepo)(nil)

func NewTokensRepo(db *sql.DB) *TokensRepo {
	return &TokensRepo{db: db}
}

func (r *TokensRepo) CreatePortal(ctx context.Context, t accesstokens.PortalToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO client_access (access_token, client_id, created_by, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, t.Token, t.ClientID, t.CreatedBy, t.ExpiresAt, t.CreatedAt)
	return err
}

func (r *TokensRepo) GetPortal(ctx context.Context, token string) (accesstokens.PortalToken, error) {
	var t accesstokens.PortalToken
	err := r.db.QueryRowContext(ctx, `
		SELECT access_token, client_id, created_by, expires_at, created_at
		FROM client_access WHERE access_token = $1
	`, token).Scan(&t.Token, &t.ClientID, &t.CreatedBy, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return accesstokens.PortalToken{}, ErrNotFound
	}
	return t, err
}

func (r *TokensRepo) CreateShare(ctx context.Context, t accesstokens.ShareToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shared_document_access (access_token, client_id, created_by, access_type, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, t.Token, t.ClientID, t.CreatedBy, string(t.AccessType), t.ExpiresAt, t.CreatedAt)
	return err
}

func (r *TokensRepo) GetShare(ctx context.Context, token string) (accesstokens.ShareToken, error) {
	var t accesstokens.ShareToken
	var accessType string
	err := r.db.QueryRowContext(ctx, `
		SELECT access_token, client_id, created_by, access_type, expires_at, created_at
		FROM shared_document_access WHERE access_token = $1
	`, token).Scan(&t.Token, &t.ClientID, &t.CreatedBy, &accessType, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return accesstokens.ShareToken{}, ErrNotFound
	}
	t.AccessType = accesstokens.AccessType(accessType)
	return t, err
}
