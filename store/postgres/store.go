// Package postgres implements the Treasury store on PostgreSQL via pgx.
// Schema management goes through sql-migrate over the pgx stdlib adapter.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	treasurystore "github.com/xraph/treasury/store"
	"github.com/xraph/treasury/vesting"
)

// compile-time interface check
var _ treasurystore.Store = (*Store)(nil)

// Store implements store.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-configured pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to the database at dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("treasury/postgres: connect: %w", err)
	}
	return New(pool), nil
}

// Pool returns the underlying connection pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	if _, err := migrate.ExecContext(ctx, db, "postgres", migrationSource, migrate.Up); err != nil {
		return errors.Join(treasury.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Vesting Store ====================

func (s *Store) GetVestingPool(ctx context.Context) (*vesting.Pool, error) {
	var r vestingPoolRow
	err := s.pool.QueryRow(ctx, `
		SELECT cliff_duration, start_time, total_allocated::text, paused, configured, created_at, updated_at
		FROM treasury_vesting_pool WHERE key = $1`, vesting.PoolKey).
		Scan(&r.CliffDurationNs, &r.StartTime, &r.TotalAllocated, &r.Paused, &r.Configured, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, treasury.ErrNotFound
		}
		return nil, err
	}
	return r.toDomain()
}

func (s *Store) PutVestingPool(ctx context.Context, p *vesting.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO treasury_vesting_pool
			(key, cliff_duration, start_time, total_allocated, paused, configured, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		ON CONFLICT (key) DO UPDATE SET
			cliff_duration  = EXCLUDED.cliff_duration,
			start_time      = EXCLUDED.start_time,
			total_allocated = EXCLUDED.total_allocated,
			paused          = EXCLUDED.paused,
			configured      = EXCLUDED.configured,
			updated_at      = EXCLUDED.updated_at`,
		vesting.PoolKey, int64(p.CliffDuration), p.StartTime, p.TotalAllocated.Dec(),
		p.Paused, p.Configured, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) GetAllocation(ctx context.Context, beneficiary string) (*vesting.Allocation, error) {
	var r allocationRow
	err := s.pool.QueryRow(ctx, `
		SELECT beneficiary, amount::text, released, revoked, position, created_at, updated_at
		FROM treasury_allocations WHERE beneficiary = $1`, beneficiary).
		Scan(&r.Beneficiary, &r.Amount, &r.Released, &r.Revoked, &r.Position, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, treasury.ErrNoAllocation
		}
		return nil, err
	}
	return r.toDomain()
}

const putAllocationSQL = `
	INSERT INTO treasury_allocations
		(beneficiary, amount, released, revoked, position, created_at, updated_at)
	VALUES ($1, $2::numeric, $3, $4, $5, $6, $7)
	ON CONFLICT (beneficiary) DO UPDATE SET
		amount     = EXCLUDED.amount,
		released   = EXCLUDED.released,
		revoked    = EXCLUDED.revoked,
		position   = EXCLUDED.position,
		updated_at = EXCLUDED.updated_at`

func (s *Store) PutAllocation(ctx context.Context, a *vesting.Allocation) error {
	_, err := s.pool.Exec(ctx, putAllocationSQL,
		a.Beneficiary, a.Amount.Dec(), a.Released, a.Revoked, a.Position, a.CreatedAt, a.UpdatedAt)
	return err
}

func (s *Store) PutAllocations(ctx context.Context, allocs []*vesting.Allocation) error {
	if len(allocs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, a := range allocs {
		if _, err := tx.Exec(ctx, putAllocationSQL,
			a.Beneficiary, a.Amount.Dec(), a.Released, a.Revoked, a.Position, a.CreatedAt, a.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListAllocations(ctx context.Context) ([]*vesting.Allocation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT beneficiary, amount::text, released, revoked, position, created_at, updated_at
		FROM treasury_allocations ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*vesting.Allocation
	for rows.Next() {
		var r allocationRow
		if err := rows.Scan(&r.Beneficiary, &r.Amount, &r.Released, &r.Revoked, &r.Position, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		a, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ==================== Staking Store ====================

func (s *Store) GetStakingPool(ctx context.Context) (*staking.Pool, error) {
	var r stakingPoolRow
	err := s.pool.QueryRow(ctx, `
		SELECT reward_rate_bps, lockup_duration, total_staked::text, reward_pool_balance::text, created_at, updated_at
		FROM treasury_staking_pool WHERE key = $1`, staking.PoolKey).
		Scan(&r.RewardRateBps, &r.LockupDurationNs, &r.TotalStaked, &r.RewardPoolBalance, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, treasury.ErrNotFound
		}
		return nil, err
	}
	return r.toDomain()
}

func (s *Store) PutStakingPool(ctx context.Context, p *staking.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO treasury_staking_pool
			(key, reward_rate_bps, lockup_duration, total_staked, reward_pool_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)
		ON CONFLICT (key) DO UPDATE SET
			reward_rate_bps     = EXCLUDED.reward_rate_bps,
			lockup_duration     = EXCLUDED.lockup_duration,
			total_staked        = EXCLUDED.total_staked,
			reward_pool_balance = EXCLUDED.reward_pool_balance,
			updated_at          = EXCLUDED.updated_at`,
		staking.PoolKey, p.RewardRateBps, int64(p.LockupDuration),
		p.TotalStaked.Dec(), p.RewardPoolBalance.Dec(), p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) GetPosition(ctx context.Context, account string) (*staking.Position, error) {
	var r positionRow
	err := s.pool.QueryRow(ctx, `
		SELECT account, amount::text, stake_time, last_reward_time, last_reward_rate, pending_rewards::text, created_at, updated_at
		FROM treasury_positions WHERE account = $1`, account).
		Scan(&r.Account, &r.Amount, &r.StakeTime, &r.LastRewardTime, &r.LastRewardRate, &r.PendingRewards, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, treasury.ErrNoPosition
		}
		return nil, err
	}
	return r.toDomain()
}

func (s *Store) PutPosition(ctx context.Context, p *staking.Position) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO treasury_positions
			(account, amount, stake_time, last_reward_time, last_reward_rate, pending_rewards, created_at, updated_at)
		VALUES ($1, $2::numeric, $3, $4, $5, $6::numeric, $7, $8)
		ON CONFLICT (account) DO UPDATE SET
			amount           = EXCLUDED.amount,
			stake_time       = EXCLUDED.stake_time,
			last_reward_time = EXCLUDED.last_reward_time,
			last_reward_rate = EXCLUDED.last_reward_rate,
			pending_rewards  = EXCLUDED.pending_rewards,
			updated_at       = EXCLUDED.updated_at`,
		p.Account, p.Amount.Dec(), p.StakeTime, p.LastRewardTime,
		p.LastRewardRate, p.PendingRewards.Dec(), p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) DeletePosition(ctx context.Context, account string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM treasury_positions WHERE account = $1`, account)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return treasury.ErrNoPosition
	}
	return nil
}

func (s *Store) ListPositions(ctx context.Context) ([]*staking.Position, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT account, amount::text, stake_time, last_reward_time, last_reward_rate, pending_rewards::text, created_at, updated_at
		FROM treasury_positions ORDER BY account ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*staking.Position
	for rows.Next() {
		var r positionRow
		if err := rows.Scan(&r.Account, &r.Amount, &r.StakeTime, &r.LastRewardTime, &r.LastRewardRate, &r.PendingRewards, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		p, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ==================== Receipt Store ====================

func (s *Store) AppendReceipt(ctx context.Context, r *receipt.Receipt) error {
	detail, err := json.Marshal(r.Detail)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO treasury_receipts (id, op, account, amount, at, detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)`,
		r.ID.String(), string(r.Op), r.Account, r.Amount.Dec(), r.At,
		detail, r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *Store) ListReceipts(ctx context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	query := `
		SELECT id, op, account, amount::text, at, detail, created_at, updated_at
		FROM treasury_receipts WHERE TRUE`
	var args []any
	if opts.Op != "" {
		args = append(args, string(opts.Op))
		query += fmt.Sprintf(` AND op = $%d`, len(args))
	}
	if opts.Account != "" {
		args = append(args, opts.Account)
		query += fmt.Sprintf(` AND account = $%d`, len(args))
	}
	query += ` ORDER BY seq ASC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*receipt.Receipt
	for rows.Next() {
		var r receiptRow
		if err := rows.Scan(&r.ID, &r.Op, &r.Account, &r.Amount, &r.At, &r.Detail, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rec, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// ==================== Helpers ====================

// isNoRows checks for the pgx no-rows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
