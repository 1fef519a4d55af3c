package postgres

import (
	"context"
	"fmt"

	"bankops/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// Statements is the collaborator schema, applied in order.
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS cards (
        id TEXT PRIMARY KEY,
        account_id TEXT NOT NULL,
        pin_hash TEXT NOT NULL,
        frozen BOOLEAN NOT NULL DEFAULT FALSE,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS cards_account_id_idx ON cards (account_id)`,
	`CREATE TABLE IF NOT EXISTS atm_devices (
        id TEXT PRIMARY KEY,
        localization TEXT NOT NULL DEFAULT '',
        status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'maintenance')),
        per_operation_limit BIGINT NOT NULL CHECK (per_operation_limit > 0),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS atm_devices_status_idx ON atm_devices (status)`,
}

// RunMigration applies Statements in one transaction.
func RunMigration(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Info("All PostgreSQL migrations applied", "statements", len(Statements))
	return nil
}
