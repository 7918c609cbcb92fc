package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// YieldMetrics holds derived figures; a nil field could not be computed.
type YieldMetrics struct {
	APY    *decimal.Decimal `json:"apy,omitempty"`
	TVLUSD *decimal.Decimal `json:"tvl_usd,omitempty"`
}

// FarmYield ties yield metrics to a farm.
type FarmYield struct {
	PID    uint64 `json:"pid"`
	Symbol string `json:"symbol"`
	YieldMetrics
}

// Snapshot is the immutable output of one poll cycle.
type Snapshot struct {
	ID             uuid.UUID        `json:"id"`
	Seq            uint64           `json:"seq"`
	ChainID        uint64           `json:"chain_id"`
	BlockNumber    uint64           `json:"block_number"`
	Account        *common.Address  `json:"account,omitempty"`
	TakenAt        time.Time        `json:"taken_at"`
	RewardToken    Token            `json:"reward_token"`
	RewardPriceUSD *decimal.Decimal `json:"reward_price_usd,omitempty"`
	Pairs          []PairResult     `json:"pairs"`
	UserFarms      []UserFarmInfo   `json:"user_farms"`
	PoolFarms      []PoolFarmInfo   `json:"pool_farms"`
	Yields         []FarmYield      `json:"yields"`
	Loading        bool             `json:"loading"`
}

// NewSnapshot stamps a fresh snapshot id and time.
func NewSnapshot(chainID uint64) *Snapshot {
	return &Snapshot{
		ID:      uuid.New(),
		ChainID: chainID,
		TakenAt: time.Now().UTC(),
	}
}
