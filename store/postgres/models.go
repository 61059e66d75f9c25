package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	"github.com/xraph/treasury/types"
	"github.com/xraph/treasury/vesting"
)

// Row structs mirror the table layouts. Amounts travel as NUMERIC(78,0)
// text so the full 256-bit range survives the round trip.

// ==================== Vesting models ====================

type vestingPoolRow struct {
	CliffDurationNs int64
	StartTime       *time.Time
	TotalAllocated  string
	Paused          bool
	Configured      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *vestingPoolRow) toDomain() (*vesting.Pool, error) {
	total, err := types.ParseAmount(r.TotalAllocated)
	if err != nil {
		return nil, err
	}
	return &vesting.Pool{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		CliffDuration:  time.Duration(r.CliffDurationNs),
		StartTime:      r.StartTime,
		TotalAllocated: total,
		Paused:         r.Paused,
		Configured:     r.Configured,
	}, nil
}

type allocationRow struct {
	Beneficiary string
	Amount      string
	Released    bool
	Revoked     bool
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *allocationRow) toDomain() (*vesting.Allocation, error) {
	amount, err := types.ParseAmount(r.Amount)
	if err != nil {
		return nil, err
	}
	return &vesting.Allocation{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Beneficiary: r.Beneficiary,
		Amount:      amount,
		Released:    r.Released,
		Revoked:     r.Revoked,
		Position:    r.Position,
	}, nil
}

// ==================== Staking models ====================

type stakingPoolRow struct {
	RewardRateBps     uint32
	LockupDurationNs  int64
	TotalStaked       string
	RewardPoolBalance string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (r *stakingPoolRow) toDomain() (*staking.Pool, error) {
	staked, err := types.ParseAmount(r.TotalStaked)
	if err != nil {
		return nil, err
	}
	balance, err := types.ParseAmount(r.RewardPoolBalance)
	if err != nil {
		return nil, err
	}
	return &staking.Pool{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		RewardRateBps:     r.RewardRateBps,
		LockupDuration:    time.Duration(r.LockupDurationNs),
		TotalStaked:       staked,
		RewardPoolBalance: balance,
	}, nil
}

type positionRow struct {
	Account        string
	Amount         string
	StakeTime      time.Time
	LastRewardTime time.Time
	LastRewardRate uint32
	PendingRewards string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *positionRow) toDomain() (*staking.Position, error) {
	amount, err := types.ParseAmount(r.Amount)
	if err != nil {
		return nil, err
	}
	pending, err := types.ParseAmount(r.PendingRewards)
	if err != nil {
		return nil, err
	}
	return &staking.Position{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Account:        r.Account,
		Amount:         amount,
		StakeTime:      r.StakeTime,
		LastRewardTime: r.LastRewardTime,
		LastRewardRate: r.LastRewardRate,
		PendingRewards: pending,
	}, nil
}

// ==================== Receipt models ====================

type receiptRow struct {
	ID        string
	Op        string
	Account   string
	Amount    string
	At        time.Time
	Detail    []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *receiptRow) toDomain() (*receipt.Receipt, error) {
	rid, err := id.ParseReceiptID(r.ID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(r.Amount)
	if err != nil {
		return nil, err
	}
	var detail map[string]string
	if len(r.Detail) > 0 && string(r.Detail) != "null" && string(r.Detail) != "{}" {
		if err := json.Unmarshal(r.Detail, &detail); err != nil {
			return nil, err
		}
	}
	return &receipt.Receipt{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		ID:      rid,
		Op:      receipt.Op(r.Op),
		Account: r.Account,
		Amount:  amount,
		At:      r.At,
		Detail:  detail,
	}, nil
}
