package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id          BIGSERIAL PRIMARY KEY,
	actor       TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	entity      TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	meta        JSONB,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const auditIndex = `CREATE INDEX IF NOT EXISTS audit_logs_entity_idx ON audit_logs (entity, entity_id)`

// WithTx executes fn within a read committed transaction.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}
	return nil
}

// EnsureAuditSchema creates the audit_logs table when it is missing.
func EnsureAuditSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		for _, stmt := range []string{auditSchema, auditIndex} {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("platform/db: ensure audit schema: %w", err)
			}
		}
		return nil
	})
}
