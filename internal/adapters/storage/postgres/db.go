package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"client-docs-portal/internal/platform/apperr"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound envuelve apperr.ErrNotFound para que los servicios lo traduzcan a 404.
var ErrNotFound = fmt.Errorf("postgres: %w", apperr.ErrNotFound)

type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(ctx context.Context, dsn string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpen <= 0 {
		pool.MaxOpen = 10
	}
	if pool.MaxIdle <= 0 {
		pool.MaxIdle = 5
	}
	if pool.MaxIdleTime <= 0 {
		pool.MaxIdleTime = 5 * time.Minute
	}
	if pool.MaxLifetime <= 0 {
		pool.MaxLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxIdleTime(pool.MaxIdleTime)
	db.SetConnMaxLifetime(pool.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// withTx corre fn en una transacción; rollback si fn falla.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: strings.TrimSpace(s) != ""}
}
