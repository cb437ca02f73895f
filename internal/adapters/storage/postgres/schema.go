package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema es idempotente: se aplica completo en cada arranque.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS clientes (
		id              TEXT PRIMARY KEY,
		nombre          TEXT NOT NULL,
		email           TEXT NOT NULL DEFAULT '',
		telefono        TEXT NOT NULL DEFAULT '',
		organization_id TEXT NOT NULL,
		created_by      TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS clientes_org_idx ON clientes (organization_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS documentos_cliente (
		id         TEXT PRIMARY KEY,
		cliente_id TEXT NOT NULL REFERENCES clientes (id) ON DELETE CASCADE,
		nombre     TEXT NOT NULL,
		orden      INTEGER NOT NULL DEFAULT 0,
		archivos   JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documentos_cliente_idx ON documentos_cliente (cliente_id, orden)`,

	`CREATE TABLE IF NOT EXISTS client_access (
		access_token TEXT PRIMARY KEY,
		client_id    TEXT NOT NULL REFERENCES clientes (id) ON DELETE CASCADE,
		created_by   TEXT NOT NULL,
		expires_at   TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS shared_document_access (
		access_token TEXT PRIMARY KEY,
		client_id    TEXT NOT NULL REFERENCES clientes (id) ON DELETE CASCADE,
		created_by   TEXT NOT NULL,
		access_type  TEXT NOT NULL CHECK (access_type IN ('view', 'download')),
		expires_at   TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS client_messages (
		id         TEXT PRIMARY KEY,
		client_id  TEXT NOT NULL REFERENCES clientes (id) ON DELETE CASCADE,
		user_id    TEXT,
		is_client  BOOLEAN NOT NULL,
		message    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS client_messages_client_idx ON client_messages (client_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS message_read_markers (
		viewer    TEXT NOT NULL,
		client_id TEXT NOT NULL,
		seen_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (viewer, client_id)
	)`,

	`CREATE TABLE IF NOT EXISTS templates (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		nombre     TEXT NOT NULL,
		documentos JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS organizations (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id              TEXT PRIMARY KEY,
		organization_id      TEXT NOT NULL,
		role                 TEXT NOT NULL CHECK (role IN ('admin', 'colaborador', 'cliente')),
		can_create_clients   BOOLEAN NOT NULL DEFAULT FALSE,
		can_send_messages    BOOLEAN NOT NULL DEFAULT FALSE,
		can_manage_documents BOOLEAN NOT NULL DEFAULT FALSE,
		created_at           TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
