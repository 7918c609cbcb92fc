package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FarmMetrics is one persisted row of pool-wide farm figures at a block.
type FarmMetrics struct {
	ChainID           uint64
	PID               uint64
	BlockNumber       uint64
	SnapshotID        string
	TakenAt           time.Time
	StakedAmount      string
	TotalSupply       string
	AccRewardPerShare string
	RewardPerBlock    *string
	PoolWeight        string
	StakedShare       *string
	TVLUSD            *string
	APY               *string
	Status            string
}

// FarmMetricsFromSnapshot flattens the pool farms of a snapshot into rows.
// Pools that are not resolved still produce a row so gaps stay visible.
func FarmMetricsFromSnapshot(snap *Snapshot) []FarmMetrics {
	if snap == nil {
		return nil
	}
	yields := make(map[uint64]YieldMetrics, len(snap.Yields))
	for _, y := range snap.Yields {
		yields[y.PID] = y.YieldMetrics
	}

	rows := make([]FarmMetrics, 0, len(snap.PoolFarms))
	for _, pool := range snap.PoolFarms {
		row := FarmMetrics{
			ChainID:           snap.ChainID,
			PID:               pool.PID,
			BlockNumber:       snap.BlockNumber,
			SnapshotID:        snap.ID.String(),
			TakenAt:           snap.TakenAt,
			StakedAmount:      pool.StakedAmount.raw().String(),
			TotalSupply:       pool.TotalSupply.raw().String(),
			AccRewardPerShare: pool.AccRewardPerShare.raw().String(),
			PoolWeight:        "0",
			Status:            pool.Status.String(),
		}
		if pool.PoolWeight != nil {
			row.PoolWeight = pool.PoolWeight.String()
		}
		if pool.NewRewardPerBlock != nil {
			value := pool.NewRewardPerBlock.String()
			row.RewardPerBlock = &value
		}
		if share := pool.StakedShare(); share != nil {
			value := FormatRat(share, 6)
			row.StakedShare = &value
		}
		if y, ok := yields[pool.PID]; ok {
			row.TVLUSD = decimalString(y.TVLUSD)
			row.APY = decimalString(y.APY)
		}
		rows = append(rows, row)
	}
	return rows
}

func decimalString(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	text := value.String()
	return &text
}
