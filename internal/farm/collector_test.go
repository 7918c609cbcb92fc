package farm

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmScope/internal/chain"
	"farmScope/internal/model"
	"farmScope/internal/price"
	"farmScope/internal/yield"
)

type stubResolver struct {
	pair *model.Pair
	reqs []model.TokenPairRequest
}

func (s *stubResolver) Resolve(ctx context.Context, reqs []model.TokenPairRequest) []model.PairResult {
	s.reqs = reqs
	out := make([]model.PairResult, len(reqs))
	for i := range reqs {
		out[i] = model.PairResult{State: model.PairExists, Pair: s.pair}
	}
	return out
}

type stubBlocks uint64

func (b stubBlocks) BlockNumber(context.Context) (uint64, error) {
	return uint64(b), nil
}

func TestCollectorBuildsSnapshot(t *testing.T) {
	usdc := model.Token{ChainID: 100, Address: common.HexToAddress("0x00000000000000000000000000000000000000b2"), Decimals: 6, Symbol: "USDC"}
	twoTokens := new(big.Int).Mul(big.NewInt(2), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	pair, err := model.NewPair(
		model.NewTokenAmount(rewardToken, new(big.Int).Mul(big.NewInt(100), twoTokens)),
		model.NewTokenAmount(usdc, big.NewInt(500_000_000)),
		lpXYZ.Address,
	)
	require.NoError(t, err)

	base := poolHandler(100, 0, 400, 400)
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		switch req.Method {
		case "getNewRewardPerBlock":
			return ok(twoTokens)
		case "userInfo":
			return ok(big.NewInt(0), big.NewInt(0))
		case "pendingReward":
			return ok(big.NewInt(0))
		}
		return base(req)
	}}

	farm := model.FarmDescriptor{PID: 3, LiquidityToken: lpXYZ, Token0: rewardToken.Address, Token1: usdc.Address, Symbol: "BAO-USDC"}
	resolver := &stubResolver{pair: pair}
	collector := NewCollector(
		CollectorConfig{
			ChainID:     100,
			Farms:       []model.FarmDescriptor{farm},
			RewardToken: rewardToken,
			Tokens:      map[common.Address]model.Token{rewardToken.Address: rewardToken, usdc.Address: usdc},
			Anchors:     yield.PriceBook{usdc.Address: decimal.NewFromInt(1)},
		},
		NewAggregator(reader, masterFarmer, rewardToken, nil),
		NewRewardSource(reader, masterFarmer, nil),
		resolver,
		price.NewStaticFeed(decimal.RequireFromString("1.5")),
		yield.NewEstimator(5*time.Second),
		stubBlocks(1234),
		nil,
	)

	snap := collector.Collect(context.Background())

	assert.Equal(t, uint64(100), snap.ChainID)
	assert.Equal(t, uint64(1234), snap.BlockNumber)
	assert.False(t, snap.Loading)
	require.Len(t, resolver.reqs, 1)
	require.Len(t, snap.Pairs, 1)
	require.Len(t, snap.PoolFarms, 1)
	assert.Empty(t, snap.UserFarms)

	require.Len(t, snap.Yields, 1)
	got := snap.Yields[0]
	assert.Equal(t, uint64(3), got.PID)
	require.NotNil(t, got.TVLUSD)
	assert.True(t, got.TVLUSD.Equal(decimal.NewFromInt(1000)), got.TVLUSD.String())
	require.NotNil(t, got.APY)
	assert.True(t, got.APY.Equal(decimal.NewFromInt(189216)), got.APY.String())
}
