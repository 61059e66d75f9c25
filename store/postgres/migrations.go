package postgres

import (
	migrate "github.com/rubenv/sql-migrate"
)

// migrationSource holds the schema steps applied by Store.Migrate.
// sql-migrate tracks applied steps in gorp_migrations, so reruns are no-ops.
var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "20250101000001_create_treasury_pools",
			Up: []string{`
CREATE TABLE IF NOT EXISTS treasury_vesting_pool (
    key             TEXT PRIMARY KEY,
    cliff_duration  BIGINT NOT NULL DEFAULT 0,
    start_time      TIMESTAMPTZ,
    total_allocated NUMERIC(78, 0) NOT NULL DEFAULT 0,
    paused          BOOLEAN NOT NULL DEFAULT FALSE,
    configured      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS treasury_staking_pool (
    key                 TEXT PRIMARY KEY,
    reward_rate_bps     INTEGER NOT NULL DEFAULT 0,
    lockup_duration     BIGINT NOT NULL DEFAULT 0,
    total_staked        NUMERIC(78, 0) NOT NULL DEFAULT 0,
    reward_pool_balance NUMERIC(78, 0) NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
`},
			Down: []string{
				`DROP TABLE IF EXISTS treasury_vesting_pool`,
				`DROP TABLE IF EXISTS treasury_staking_pool`,
			},
		},
		{
			Id: "20250101000002_create_treasury_allocations",
			Up: []string{`
CREATE TABLE IF NOT EXISTS treasury_allocations (
    beneficiary TEXT PRIMARY KEY,
    amount      NUMERIC(78, 0) NOT NULL DEFAULT 0,
    released    BOOLEAN NOT NULL DEFAULT FALSE,
    revoked     BOOLEAN NOT NULL DEFAULT FALSE,
    position    INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_treasury_allocations_position ON treasury_allocations (position);
`},
			Down: []string{`DROP TABLE IF EXISTS treasury_allocations`},
		},
		{
			Id: "20250101000003_create_treasury_positions",
			Up: []string{`
CREATE TABLE IF NOT EXISTS treasury_positions (
    account          TEXT PRIMARY KEY,
    amount           NUMERIC(78, 0) NOT NULL DEFAULT 0,
    stake_time       TIMESTAMPTZ NOT NULL,
    last_reward_time TIMESTAMPTZ NOT NULL,
    last_reward_rate BIGINT NOT NULL DEFAULT 0,
    pending_rewards  NUMERIC(78, 0) NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`},
			Down: []string{`DROP TABLE IF EXISTS treasury_positions`},
		},
		{
			Id: "20250101000004_create_treasury_receipts",
			Up: []string{`
CREATE TABLE IF NOT EXISTS treasury_receipts (
    seq        BIGSERIAL PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    op         TEXT NOT NULL DEFAULT '',
    account    TEXT NOT NULL DEFAULT '',
    amount     NUMERIC(78, 0) NOT NULL DEFAULT 0,
    at         TIMESTAMPTZ NOT NULL,
    detail     JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_treasury_receipts_op ON treasury_receipts (op, seq);
CREATE INDEX IF NOT EXISTS idx_treasury_receipts_account ON treasury_receipts (account, seq);
`},
			Down: []string{`DROP TABLE IF EXISTS treasury_receipts`},
		},
	},
}
