package mongo

import (
	"time"

	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	"github.com/xraph/treasury/types"
	"github.com/xraph/treasury/vesting"
)

// Amounts are stored as decimal strings so the full 256-bit range survives
// the round trip; durations are stored as nanosecond integers.

// ==================== Vesting models ====================

type vestingPoolModel struct {
	Key            string     `bson:"_id"`
	CliffDuration  int64      `bson:"cliff_duration"`
	StartTime      *time.Time `bson:"start_time,omitempty"`
	TotalAllocated string     `bson:"total_allocated"`
	Paused         bool       `bson:"paused"`
	Configured     bool       `bson:"configured"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func toVestingPoolModel(p *vesting.Pool) *vestingPoolModel {
	return &vestingPoolModel{
		Key:            vesting.PoolKey,
		CliffDuration:  int64(p.CliffDuration),
		StartTime:      p.StartTime,
		TotalAllocated: p.TotalAllocated.Dec(),
		Paused:         p.Paused,
		Configured:     p.Configured,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromVestingPoolModel(m *vestingPoolModel) (*vesting.Pool, error) {
	total, err := types.ParseAmount(m.TotalAllocated)
	if err != nil {
		return nil, err
	}
	return &vesting.Pool{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CliffDuration:  time.Duration(m.CliffDuration),
		StartTime:      m.StartTime,
		TotalAllocated: total,
		Paused:         m.Paused,
		Configured:     m.Configured,
	}, nil
}

type allocationModel struct {
	Beneficiary string    `bson:"_id"`
	Amount      string    `bson:"amount"`
	Released    bool      `bson:"released"`
	Revoked     bool      `bson:"revoked"`
	Position    int       `bson:"position"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toAllocationModel(a *vesting.Allocation) *allocationModel {
	return &allocationModel{
		Beneficiary: a.Beneficiary,
		Amount:      a.Amount.Dec(),
		Released:    a.Released,
		Revoked:     a.Revoked,
		Position:    a.Position,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func fromAllocationModel(m *allocationModel) (*vesting.Allocation, error) {
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	return &vesting.Allocation{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Beneficiary: m.Beneficiary,
		Amount:      amount,
		Released:    m.Released,
		Revoked:     m.Revoked,
		Position:    m.Position,
	}, nil
}

// ==================== Staking models ====================

type stakingPoolModel struct {
	Key               string    `bson:"_id"`
	RewardRateBps     uint32    `bson:"reward_rate_bps"`
	LockupDuration    int64     `bson:"lockup_duration"`
	TotalStaked       string    `bson:"total_staked"`
	RewardPoolBalance string    `bson:"reward_pool_balance"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func toStakingPoolModel(p *staking.Pool) *stakingPoolModel {
	return &stakingPoolModel{
		Key:               staking.PoolKey,
		RewardRateBps:     p.RewardRateBps,
		LockupDuration:    int64(p.LockupDuration),
		TotalStaked:       p.TotalStaked.Dec(),
		RewardPoolBalance: p.RewardPoolBalance.Dec(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func fromStakingPoolModel(m *stakingPoolModel) (*staking.Pool, error) {
	staked, err := types.ParseAmount(m.TotalStaked)
	if err != nil {
		return nil, err
	}
	balance, err := types.ParseAmount(m.RewardPoolBalance)
	if err != nil {
		return nil, err
	}
	return &staking.Pool{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		RewardRateBps:     m.RewardRateBps,
		LockupDuration:    time.Duration(m.LockupDuration),
		TotalStaked:       staked,
		RewardPoolBalance: balance,
	}, nil
}

type positionModel struct {
	Account        string    `bson:"_id"`
	Amount         string    `bson:"amount"`
	StakeTime      time.Time `bson:"stake_time"`
	LastRewardTime time.Time `bson:"last_reward_time"`
	LastRewardRate uint32    `bson:"last_reward_rate"`
	PendingRewards string    `bson:"pending_rewards"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toPositionModel(p *staking.Position) *positionModel {
	return &positionModel{
		Account:        p.Account,
		Amount:         p.Amount.Dec(),
		StakeTime:      p.StakeTime,
		LastRewardTime: p.LastRewardTime,
		LastRewardRate: p.LastRewardRate,
		PendingRewards: p.PendingRewards.Dec(),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPositionModel(m *positionModel) (*staking.Position, error) {
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	pending, err := types.ParseAmount(m.PendingRewards)
	if err != nil {
		return nil, err
	}
	return &staking.Position{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Account:        m.Account,
		Amount:         amount,
		StakeTime:      m.StakeTime,
		LastRewardTime: m.LastRewardTime,
		LastRewardRate: m.LastRewardRate,
		PendingRewards: pending,
	}, nil
}

// ==================== Receipt models ====================

type receiptModel struct {
	ID        string            `bson:"_id"`
	Op        string            `bson:"op"`
	Account   string            `bson:"account"`
	Amount    string            `bson:"amount"`
	At        time.Time         `bson:"at"`
	Detail    map[string]string `bson:"detail,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

func toReceiptModel(r *receipt.Receipt) *receiptModel {
	return &receiptModel{
		ID:        r.ID.String(),
		Op:        string(r.Op),
		Account:   r.Account,
		Amount:    r.Amount.Dec(),
		At:        r.At,
		Detail:    r.Detail,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromReceiptModel(m *receiptModel) (*receipt.Receipt, error) {
	rid, err := id.ParseReceiptID(m.ID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	return &receipt.Receipt{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:      rid,
		Op:      receipt.Op(m.Op),
		Account: m.Account,
		Amount:  amount,
		At:      m.At,
		Detail:  m.Detail,
	}, nil
}
