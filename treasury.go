package treasury

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/treasury/custodian"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// AdminCheck reports whether the caller behind ctx may run privileged
// operations (configure, pause, revoke, rate changes, emergency withdraw).
type AdminCheck func(ctx context.Context) bool

// Treasury is the main vesting and staking engine. All state-changing
// operations are serialized per ledger: one lock guards the vesting pool
// and another guards the staking pool, so vesting and staking traffic never
// block each other. Queries take the same locks in shared mode and so never
// observe a half-applied mutation.
type Treasury struct {
	store     store.Store
	custodian custodian.Custodian
	plugins   *plugin.Registry
	logger    *slog.Logger

	account    string
	clock      func() time.Time
	adminCheck AdminCheck

	// Configuration
	cliffDuration  time.Duration
	lockupDuration time.Duration
	minRateBps     uint32
	maxRateBps     uint32
	initialRateBps uint32

	vestingMu sync.RWMutex
	stakingMu sync.RWMutex
}

// New creates a new Treasury instance. The custodian's engine-side account
// is named by account; all releases and reward payouts draw from it.
func New(s store.Store, c custodian.Custodian, opts ...Option) *Treasury {
	t := &Treasury{
		store:          s,
		custodian:      c,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		account:        "treasury",
		clock:          func() time.Time { return time.Now().UTC() },
		cliffDuration:  90 * 24 * time.Hour,
		lockupDuration: 30 * 24 * time.Hour,
		minRateBps:     100,
		maxRateBps:     5000,
		initialRateBps: 1000,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Option configures a Treasury instance.
type Option func(*Treasury)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Treasury) {
		t.logger = logger
		t.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(t *Treasury) {
		_ = t.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAccount names the custodian account the engine draws from.
func WithAccount(account string) Option {
	return func(t *Treasury) {
		t.account = account
	}
}

// WithClock overrides the time source. Tests use this to drive cliff and
// lockup boundaries deterministically.
func WithClock(clock func() time.Time) Option {
	return func(t *Treasury) {
		t.clock = clock
	}
}

// WithAdminCheck installs the privileged-caller predicate. Without one,
// every caller is treated as an admin.
func WithAdminCheck(check AdminCheck) Option {
	return func(t *Treasury) {
		t.adminCheck = check
	}
}

// WithCliffDuration sets the vesting cliff applied at configuration time.
func WithCliffDuration(d time.Duration) Option {
	return func(t *Treasury) {
		t.cliffDuration = d
	}
}

// WithLockupDuration sets the initial staking lockup.
func WithLockupDuration(d time.Duration) Option {
	return func(t *Treasury) {
		t.lockupDuration = d
	}
}

// WithRewardRate sets the initial reward rate in basis points.
func WithRewardRate(bps uint32) Option {
	return func(t *Treasury) {
		t.initialRateBps = bps
	}
}

// WithRateBand sets the allowed reward rate range for UpdateRewardRate.
func WithRateBand(minBps, maxBps uint32) Option {
	return func(t *Treasury) {
		t.minRateBps = minBps
		t.maxRateBps = maxBps
	}
}

// Start migrates the store, bootstraps the staking pool if absent, and
// initializes plugins.
func (t *Treasury) Start(ctx context.Context) error {
	if err := t.store.Migrate(ctx); err != nil {
		return err
	}

	// First start creates the staking pool with the configured defaults.
	// The vesting pool is created by Configure.
	if _, err := t.store.GetStakingPool(ctx); IsNotFound(err) {
		pool := &staking.Pool{
			Entity:         types.NewEntity(),
			RewardRateBps:  t.initialRateBps,
			LockupDuration: t.lockupDuration,
		}
		if err := t.store.PutStakingPool(ctx, pool); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	t.plugins.EmitInit(ctx, t)

	t.logger.Info("treasury started",
		"account", t.account,
		"cliff", t.cliffDuration,
		"lockup", t.lockupDuration,
		"reward_rate_bps", t.initialRateBps,
	)

	return nil
}

// Stop shuts down the Treasury.
func (t *Treasury) Stop() error {
	ctx := context.Background()
	t.plugins.EmitShutdown(ctx)

	return t.store.Close()
}

// Plugins exposes the plugin registry for late registration.
func (t *Treasury) Plugins() *plugin.Registry {
	return t.plugins
}

// isAdmin applies the configured admin predicate.
func (t *Treasury) isAdmin(ctx context.Context) bool {
	if t.adminCheck == nil {
		return true
	}

	return t.adminCheck(ctx)
}

// journal appends a receipt. Journal failures are logged, never fatal: the
// operation they record has already committed.
func (t *Treasury) journal(ctx context.Context, op receipt.Op, account string, amount types.Amount) {
	r := &receipt.Receipt{
		Entity:  types.NewEntity(),
		ID:      id.NewReceiptID(),
		Op:      op,
		Account: account,
		Amount:  amount,
		At:      t.clock(),
	}
	if err := t.store.AppendReceipt(ctx, r); err != nil {
		t.logger.Error("failed to append receipt",
			"op", op,
			"account", account,
			"error", err,
		)
	}
}

// Receipts returns journal entries matching opts.
func (t *Treasury) Receipts(ctx context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return t.store.ListReceipts(ctx, opts)
}
