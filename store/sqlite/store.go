// Package sqlite implements the Treasury store on SQLite via database/sql
// and mattn/go-sqlite3. It suits single-node deployments that need the
// journal and pool state to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	treasurystore "github.com/xraph/treasury/store"
	"github.com/xraph/treasury/vesting"
)

// compile-time interface check
var _ treasurystore.Store = (*Store)(nil)

// Store implements store.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// New wraps an already-open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the SQLite database at path. Foreign keys
// and WAL journaling are enabled; the connection pool is capped at one
// writer, which SQLite requires anyway.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("treasury/sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return New(db), nil
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := runMigrations(ctx, s.db); err != nil {
		return errors.Join(treasury.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Vesting Store ====================

func (s *Store) GetVestingPool(ctx context.Context) (*vesting.Pool, error) {
	var (
		p         vesting.Pool
		cliffNs   int64
		start     sql.NullString
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT cliff_duration, start_time, total_allocated, paused, configured, created_at, updated_at
		FROM treasury_vesting_pool WHERE key = ?`, vesting.PoolKey).
		Scan(&cliffNs, &start, &p.TotalAllocated, &p.Paused, &p.Configured, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, treasury.ErrNotFound
		}
		return nil, err
	}
	p.CliffDuration = time.Duration(cliffNs)
	if start.Valid {
		t, err := parseTime(start.String)
		if err != nil {
			return nil, err
		}
		p.StartTime = &t
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) PutVestingPool(ctx context.Context, p *vesting.Pool) error {
	var start sql.NullString
	if p.StartTime != nil {
		start = sql.NullString{String: fmtTime(*p.StartTime), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO treasury_vesting_pool
			(key, cliff_duration, start_time, total_allocated, paused, configured, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			cliff_duration  = excluded.cliff_duration,
			start_time      = excluded.start_time,
			total_allocated = excluded.total_allocated,
			paused          = excluded.paused,
			configured      = excluded.configured,
			updated_at      = excluded.updated_at`,
		vesting.PoolKey, int64(p.CliffDuration), start, p.TotalAllocated,
		p.Paused, p.Configured, fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt))
	return err
}

func (s *Store) GetAllocation(ctx context.Context, beneficiary string) (*vesting.Allocation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT beneficiary, amount, released, revoked, position, created_at, updated_at
		FROM treasury_allocations WHERE beneficiary = ?`, beneficiary)
	a, err := scanAllocation(row)
	if err != nil {
		if isNoRows(err) {
			return nil, treasury.ErrNoAllocation
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) PutAllocation(ctx context.Context, a *vesting.Allocation) error {
	return s.execPutAllocation(ctx, s.db, a)
}

func (s *Store) PutAllocations(ctx context.Context, allocs []*vesting.Allocation) error {
	if len(allocs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, a := range allocs {
		if err := s.execPutAllocation(ctx, tx, a); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListAllocations(ctx context.Context) ([]*vesting.Allocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT beneficiary, amount, released, revoked, position, created_at, updated_at
		FROM treasury_allocations ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*vesting.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ==================== Staking Store ====================

func (s *Store) GetStakingPool(ctx context.Context) (*staking.Pool, error) {
	var (
		p         staking.Pool
		lockupNs  int64
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT reward_rate_bps, lockup_duration, total_staked, reward_pool_balance, created_at, updated_at
		FROM treasury_staking_pool WHERE key = ?`, staking.PoolKey).
		Scan(&p.RewardRateBps, &lockupNs, &p.TotalStaked, &p.RewardPoolBalance, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, treasury.ErrNotFound
		}
		return nil, err
	}
	p.LockupDuration = time.Duration(lockupNs)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) PutStakingPool(ctx context.Context, p *staking.Pool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO treasury_staking_pool
			(key, reward_rate_bps, lockup_duration, total_staked, reward_pool_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			reward_rate_bps     = excluded.reward_rate_bps,
			lockup_duration     = excluded.lockup_duration,
			total_staked        = excluded.total_staked,
			reward_pool_balance = excluded.reward_pool_balance,
			updated_at          = excluded.updated_at`,
		staking.PoolKey, p.RewardRateBps, int64(p.LockupDuration),
		p.TotalStaked, p.RewardPoolBalance, fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt))
	return err
}

func (s *Store) GetPosition(ctx context.Context, account string) (*staking.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account, amount, stake_time, last_reward_time, last_reward_rate, pending_rewards, created_at, updated_at
		FROM treasury_positions WHERE account = ?`, account)
	p, err := scanPosition(row)
	if err != nil {
		if isNoRows(err) {
			return nil, treasury.ErrNoPosition
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) PutPosition(ctx context.Context, p *staking.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO treasury_positions
			(account, amount, stake_time, last_reward_time, last_reward_rate, pending_rewards, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account) DO UPDATE SET
			amount           = excluded.amount,
			stake_time       = excluded.stake_time,
			last_reward_time = excluded.last_reward_time,
			last_reward_rate = excluded.last_reward_rate,
			pending_rewards  = excluded.pending_rewards,
			updated_at       = excluded.updated_at`,
		p.Account, p.Amount, fmtTime(p.StakeTime), fmtTime(p.LastRewardTime),
		p.LastRewardRate, p.PendingRewards, fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt))
	return err
}

func (s *Store) DeletePosition(ctx context.Context, account string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM treasury_positions WHERE account = ?`, account)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return treasury.ErrNoPosition
	}
	return nil
}

func (s *Store) ListPositions(ctx context.Context) ([]*staking.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account, amount, stake_time, last_reward_time, last_reward_rate, pending_rewards, created_at, updated_at
		FROM treasury_positions ORDER BY account ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*staking.Position
	for rows.Next() {
		p, err := scanPosition(rows)
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO treasury_receipts (id, op, account, amount, at, detail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Op), r.Account, r.Amount, fmtTime(r.At),
		string(detail), fmtTime(r.CreatedAt), fmtTime(r.UpdatedAt))
	return err
}

func (s *Store) ListReceipts(ctx context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	query := `
		SELECT id, op, account, amount, at, detail, created_at, updated_at
		FROM treasury_receipts WHERE 1=1`
	var args []any
	if opts.Op != "" {
		query += ` AND op = ?`
		args = append(args, string(opts.Op))
	}
	if opts.Account != "" {
		query += ` AND account = ?`
		args = append(args, opts.Account)
	}
	query += ` ORDER BY rowid ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit == 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*receipt.Receipt
	for rows.Next() {
		var (
			r         receipt.Receipt
			rid       string
			op        string
			at        string
			detail    string
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&rid, &op, &r.Account, &r.Amount, &at, &detail, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if r.ID, err = id.ParseReceiptID(rid); err != nil {
			return nil, err
		}
		r.Op = receipt.Op(op)
		if r.At, err = parseTime(at); err != nil {
			return nil, err
		}
		if detail != "" && detail != "{}" && detail != "null" {
			if err := json.Unmarshal([]byte(detail), &r.Detail); err != nil {
				return nil, err
			}
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

// ==================== Helpers ====================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execPutAllocation(ctx context.Context, ex execer, a *vesting.Allocation) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO treasury_allocations
			(beneficiary, amount, released, revoked, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (beneficiary) DO UPDATE SET
			amount     = excluded.amount,
			released   = excluded.released,
			revoked    = excluded.revoked,
			position   = excluded.position,
			updated_at = excluded.updated_at`,
		a.Beneficiary, a.Amount, a.Released, a.Revoked, a.Position,
		fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAllocation(row rowScanner) (*vesting.Allocation, error) {
	var (
		a         vesting.Allocation
		createdAt string
		updatedAt string
	)
	err := row.Scan(&a.Beneficiary, &a.Amount, &a.Released, &a.Revoked, &a.Position, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanPosition(row rowScanner) (*staking.Position, error) {
	var (
		p          staking.Position
		stakeAt    string
		lastReward string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&p.Account, &p.Amount, &stakeAt, &lastReward, &p.LastRewardRate, &p.PendingRewards, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if p.StakeTime, err = parseTime(stakeAt); err != nil {
		return nil, err
	}
	if p.LastRewardTime, err = parseTime(lastReward); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// fmtTime stores instants as RFC3339Nano in UTC so lexical and
// chronological order agree.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	// datetime('now') defaults use SQLite's space-separated form.
	return time.Parse(time.DateTime, s)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
