package model

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFarmMetricsFromSnapshot(t *testing.T) {
	lp := Token{ChainID: 100, Address: common.HexToAddress("0x00000000000000000000000000000000000000d4"), Decimals: 18}
	snap := NewSnapshot(100)
	snap.BlockNumber = 900
	tvl := decimal.NewFromInt(1000)
	snap.PoolFarms = []PoolFarmInfo{
		{
			FarmDescriptor:    FarmDescriptor{PID: 3},
			StakedAmount:      NewTokenAmount(lp, big.NewInt(1)),
			TotalSupply:       NewTokenAmount(lp, big.NewInt(3)),
			AccRewardPerShare: NewTokenAmount(lp, big.NewInt(9)),
			NewRewardPerBlock: big.NewInt(2),
			PoolWeight:        big.NewInt(100),
			Status:            Resolved,
		},
		{
			FarmDescriptor: FarmDescriptor{PID: 4},
			TotalSupply:    NewTokenAmount(lp, big.NewInt(1)),
			Status:         Pending,
		},
	}
	snap.Yields = []FarmYield{{PID: 3, YieldMetrics: YieldMetrics{TVLUSD: &tvl}}}

	rows := FarmMetricsFromSnapshot(snap)

	require.Len(t, rows, 2)
	assert.Equal(t, uint64(900), rows[0].BlockNumber)
	assert.Equal(t, snap.ID.String(), rows[0].SnapshotID)
	assert.Equal(t, "100", rows[0].PoolWeight)
	require.NotNil(t, rows[0].StakedShare)
	assert.Equal(t, "33.333333", *rows[0].StakedShare)
	require.NotNil(t, rows[0].TVLUSD)
	assert.Equal(t, "1000", *rows[0].TVLUSD)
	assert.Nil(t, rows[0].APY)

	assert.Equal(t, "pending", rows[1].Status)
	assert.Equal(t, "0", rows[1].StakedAmount)
	assert.Nil(t, rows[1].RewardPerBlock)
	assert.Nil(t, rows[1].StakedShare)
}
