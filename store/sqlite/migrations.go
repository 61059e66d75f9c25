package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one named schema step. Steps run in order inside a single
// transaction each and are recorded in treasury_migrations so reruns are
// no-ops.
type migration struct {
	name string
	up   string
}

var migrations = []migration{
	{
		name: "create_treasury_pools",
		up: `
CREATE TABLE IF NOT EXISTS treasury_vesting_pool (
    key             TEXT PRIMARY KEY,
    cliff_duration  INTEGER NOT NULL DEFAULT 0,
    start_time      TEXT,
    total_allocated TEXT NOT NULL DEFAULT '0',
    paused          INTEGER NOT NULL DEFAULT 0,
    configured      INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS treasury_staking_pool (
    key                 TEXT PRIMARY KEY,
    reward_rate_bps     INTEGER NOT NULL DEFAULT 0,
    lockup_duration     INTEGER NOT NULL DEFAULT 0,
    total_staked        TEXT NOT NULL DEFAULT '0',
    reward_pool_balance TEXT NOT NULL DEFAULT '0',
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
);
`,
	},
	{
		name: "create_treasury_allocations",
		up: `
CREATE TABLE IF NOT EXISTS treasury_allocations (
    beneficiary TEXT PRIMARY KEY,
    amount      TEXT NOT NULL DEFAULT '0',
    released    INTEGER NOT NULL DEFAULT 0,
    revoked     INTEGER NOT NULL DEFAULT 0,
    position    INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_treasury_allocations_position ON treasury_allocations (position);
`,
	},
	{
		name: "create_treasury_positions",
		up: `
CREATE TABLE IF NOT EXISTS treasury_positions (
    account          TEXT PRIMARY KEY,
    amount           TEXT NOT NULL DEFAULT '0',
    stake_time       TEXT NOT NULL,
    last_reward_time TEXT NOT NULL,
    last_reward_rate INTEGER NOT NULL DEFAULT 0,
    pending_rewards  TEXT NOT NULL DEFAULT '0',
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);
`,
	},
	{
		name: "create_treasury_receipts",
		up: `
CREATE TABLE IF NOT EXISTS treasury_receipts (
    id         TEXT PRIMARY KEY,
    op         TEXT NOT NULL DEFAULT '',
    account    TEXT NOT NULL DEFAULT '',
    amount     TEXT NOT NULL DEFAULT '0',
    at         TEXT NOT NULL,
    detail     TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_treasury_receipts_op ON treasury_receipts (op);
CREATE INDEX IF NOT EXISTS idx_treasury_receipts_account ON treasury_receipts (account);
`,
	},
}

// runMigrations applies any unapplied steps from migrations, in order.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS treasury_migrations (
    name       TEXT PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`)
	if err != nil {
		return fmt.Errorf("treasury/sqlite: create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM treasury_migrations WHERE name = ?`, m.name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("treasury/sqlite: check migration %s: %w", m.name, err)
		}
		if applied > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("treasury/sqlite: begin migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, m.up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("treasury/sqlite: apply migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO treasury_migrations (name) VALUES (?)`, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("treasury/sqlite: record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("treasury/sqlite: commit migration %s: %w", m.name, err)
		}
	}
	return nil
}
