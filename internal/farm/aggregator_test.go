package farm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmScope/internal/chain"
	"farmScope/internal/model"
)

type fakeReader struct {
	handle   func(req chain.Request) chain.Result
	requests []chain.Request
}

func (f *fakeReader) Read(ctx context.Context, reqs []chain.Request) []chain.Result {
	f.requests = append(f.requests, reqs...)
	out := make([]chain.Result, len(reqs))
	for i, req := range reqs {
		out[i] = f.handle(req)
	}
	return out
}

var (
	masterFarmer = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	rewardToken  = model.Token{ChainID: 100, Address: common.HexToAddress("0x00000000000000000000000000000000000000c3"), Decimals: 18, Symbol: "BAO"}
	lpXYZ        = model.Token{ChainID: 100, Address: common.HexToAddress("0x00000000000000000000000000000000000000d4"), Decimals: 18, Symbol: "LP-XYZ"}
	lpABC        = model.Token{ChainID: 100, Address: common.HexToAddress("0x00000000000000000000000000000000000000d5"), Decimals: 18, Symbol: "LP-ABC"}
)

func ok(values ...interface{}) chain.Result {
	return chain.Result{Status: chain.CallSucceeded, Values: values}
}

func raw(t *testing.T, value string) *big.Int {
	t.Helper()
	out, parsed := new(big.Int).SetString(value, 10)
	require.True(t, parsed)
	return out
}

func pidOf(req chain.Request) uint64 {
	return req.Args[0].(*big.Int).Uint64()
}

func TestUserInfoIncludesStakedFarm(t *testing.T) {
	half := raw(t, "500000000000000000")
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		switch req.Method {
		case "userInfo":
			if pidOf(req) == 3 {
				return ok(half, big.NewInt(0))
			}
			return ok(big.NewInt(0), big.NewInt(0))
		case "pendingReward":
			return ok(big.NewInt(0))
		}
		return chain.Result{Status: chain.CallFailed, Err: chain.ErrReverted}
	}}
	agg := NewAggregator(reader, masterFarmer, rewardToken, nil)
	account := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	farms := []model.FarmDescriptor{
		{PID: 3, LiquidityToken: lpXYZ, Symbol: "LP-XYZ"},
		{PID: 4, LiquidityToken: lpABC, Symbol: "LP-ABC"},
	}
	infos, loading := agg.UserInfo(context.Background(), farms, &account)

	assert.False(t, loading)
	require.Len(t, infos, 1)
	assert.Equal(t, uint64(3), infos[0].PID)
	assert.Equal(t, "1", infos[0].StakedAmount.ToFixed(0))
	assert.True(t, infos[0].PendingReward.IsZero())
	assert.True(t, infos[0].PendingReward.Token.Equals(rewardToken))

	require.Len(t, reader.requests, 4)
	assert.Equal(t, account, reader.requests[0].Args[1])
}

func TestUserInfoWithoutAccountUsesZeroAddress(t *testing.T) {
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		return ok(big.NewInt(0), big.NewInt(0))
	}}
	agg := NewAggregator(reader, masterFarmer, rewardToken, nil)

	infos, loading := agg.UserInfo(context.Background(), []model.FarmDescriptor{{PID: 1, LiquidityToken: lpXYZ}}, nil)

	assert.Empty(t, infos)
	assert.False(t, loading)
	assert.Equal(t, common.Address{}, reader.requests[0].Args[1])
}

func TestUserInfoPendingReadsExcludeAndFlagLoading(t *testing.T) {
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		return chain.Result{Status: chain.CallPending}
	}}
	agg := NewAggregator(reader, masterFarmer, rewardToken, nil)

	infos, loading := agg.UserInfo(context.Background(), []model.FarmDescriptor{{PID: 1, LiquidityToken: lpXYZ}}, nil)

	assert.Empty(t, infos)
	assert.True(t, loading)
}

func TestUserInfoExcludesFarmWithoutPendingReward(t *testing.T) {
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		switch req.Method {
		case "userInfo":
			return ok(big.NewInt(5), big.NewInt(0))
		case "pendingReward":
			if pidOf(req) == 1 {
				return chain.Result{Status: chain.CallFailed, Err: errors.New("connection reset")}
			}
			return chain.Result{Status: chain.CallSucceeded}
		}
		return chain.Result{Status: chain.CallFailed, Err: chain.ErrReverted}
	}}
	agg := NewAggregator(reader, masterFarmer, rewardToken, nil)
	account := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	infos, loading := agg.UserInfo(context.Background(), []model.FarmDescriptor{
		{PID: 1, LiquidityToken: lpXYZ},
		{PID: 2, LiquidityToken: lpABC},
	}, &account)

	assert.Empty(t, infos)
	assert.False(t, loading)
}

func poolHandler(poolWeight, acc, supply, staked int64) func(chain.Request) chain.Result {
	return func(req chain.Request) chain.Result {
		switch req.Method {
		case "totalAllocPoint":
			return ok(big.NewInt(1000))
		case "poolInfo":
			return ok(lpXYZ.Address, big.NewInt(poolWeight), big.NewInt(12), big.NewInt(acc))
		case "totalSupply":
			return ok(big.NewInt(supply))
		case "balanceOf":
			return ok(big.NewInt(staked))
		}
		return chain.Result{Status: chain.CallFailed, Err: chain.ErrReverted}
	}
}

func TestPoolInfoResolved(t *testing.T) {
	reader := &fakeReader{handle: poolHandler(100, 77, 400, 100)}
	agg := NewAggregator(reader, masterFarmer, rewardToken, nil)
	rate := big.NewInt(2)

	pools, loading := agg.PoolInfo(context.Background(), []model.FarmDescriptor{{PID: 3, LiquidityToken: lpXYZ}}, []*big.Int{rate})

	assert.False(t, loading)
	require.Len(t, pools, 1)
	pool := pools[0]
	assert.Equal(t, model.Resolved, pool.Status)
	assert.Empty(t, pool.Missing)
	assert.Equal(t, big.NewInt(100), pool.PoolWeight)
	assert.Equal(t, big.NewInt(1000), pool.TotalWeight)
	assert.Equal(t, big.NewInt(77), pool.AccRewardPerShare.Raw)
	assert.Equal(t, big.NewInt(400), pool.TotalSupply.Raw)
	assert.Equal(t, big.NewInt(100), pool.StakedAmount.Raw)
	assert.Equal(t, big.NewInt(2), pool.NewRewardPerBlock)
	assert.Equal(t, 0, big.NewRat(25, 1).Cmp(pool.StakedShare()))

	// One totalAllocPoint read shared by every farm.
	assert.Equal(t, "totalAllocPoint", reader.requests[0].Method)
	assert.Equal(t, masterFarmer, reader.requests[3].Args[0])
}

func TestPoolInfoDefaultsAreTagged(t *testing.T) {
	base := poolHandler(100, 77, 400, 100)
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		switch req.Method {
		case "totalSupply":
			return chain.Result{Status: chain.CallPending}
		case "balanceOf":
			return chain.Result{Status: chain.CallFailed, Err: errors.New("timeout")}
		}
		return base(req)
	}}
	agg := NewAggregator(reader, masterFarmer, rewardToken, nil)

	pools, loading := agg.PoolInfo(context.Background(), []model.FarmDescriptor{{PID: 3, LiquidityToken: lpXYZ}}, nil)

	assert.True(t, loading)
	pool := pools[0]
	assert.Equal(t, model.Pending, pool.Status)
	assert.ElementsMatch(t, []string{FieldTotalSupply, FieldStaked}, pool.Missing)
	assert.Equal(t, big.NewInt(1), pool.TotalSupply.Raw)
	assert.True(t, pool.StakedAmount.IsZero())
	assert.True(t, pool.AccRewardPerShare.IsZero())
	assert.Equal(t, big.NewInt(0), pool.PoolWeight)
	assert.Nil(t, pool.NewRewardPerBlock)
	assert.Nil(t, pool.StakedShare())
}

func TestPoolInfoPendingStakedReadFlagsLoading(t *testing.T) {
	base := poolHandler(100, 77, 400, 100)
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		if req.Method == "balanceOf" {
			return chain.Result{Status: chain.CallPending}
		}
		return base(req)
	}}
	agg := NewAggregator(reader, masterFarmer, rewardToken, nil)

	pools, loading := agg.PoolInfo(context.Background(), []model.FarmDescriptor{{PID: 3, LiquidityToken: lpXYZ}}, nil)

	assert.True(t, loading)
	require.Len(t, pools, 1)
	assert.Equal(t, model.Pending, pools[0].Status)
	assert.Equal(t, []string{FieldStaked}, pools[0].Missing)
}

func TestPoolInfoUnavailableWhenReadsFail(t *testing.T) {
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		if req.Method == "poolInfo" {
			return chain.Result{Status: chain.CallFailed, Err: chain.ErrReverted}
		}
		return poolHandler(100, 77, 400, 100)(req)
	}}
	agg := NewAggregator(reader, masterFarmer, rewardToken, nil)

	pools, loading := agg.PoolInfo(context.Background(), []model.FarmDescriptor{
		{PID: 3, LiquidityToken: lpXYZ},
		{PID: 3, LiquidityToken: lpXYZ},
	}, nil)

	assert.False(t, loading)
	require.Len(t, pools, 2, "duplicates are kept")
	for _, pool := range pools {
		assert.Equal(t, model.Unavailable, pool.Status)
		assert.Equal(t, []string{FieldPoolInfo}, pool.Missing)
		assert.Equal(t, 1, pool.TotalSupply.Raw.Sign())
	}
}

func TestRewardSourceFansOut(t *testing.T) {
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		require.Equal(t, "getNewRewardPerBlock", req.Method)
		assert.Equal(t, 0, req.Args[0].(*big.Int).Sign())
		return ok(big.NewInt(42))
	}}
	source := NewRewardSource(reader, masterFarmer, nil)
	farms := []model.FarmDescriptor{{PID: 1}, {PID: 2}, {PID: 3}}

	rates, err := source.RewardPerBlock(context.Background(), farms)

	require.NoError(t, err)
	require.Len(t, rates, 3)
	for _, rate := range rates {
		assert.Equal(t, big.NewInt(42), rate)
	}
	assert.Len(t, reader.requests, 1)
}

func TestRewardSourceStaticOverride(t *testing.T) {
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		t.Fatalf("unexpected read %s", req.Method)
		return chain.Result{}
	}}
	source := NewRewardSource(reader, masterFarmer, big.NewInt(7))

	rates, err := source.RewardPerBlock(context.Background(), []model.FarmDescriptor{{PID: 1}})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), rates[0])
}

func TestRewardSourcePending(t *testing.T) {
	reader := &fakeReader{handle: func(req chain.Request) chain.Result {
		return chain.Result{Status: chain.CallPending}
	}}
	source := NewRewardSource(reader, masterFarmer, nil)

	rates, err := source.RewardPerBlock(context.Background(), []model.FarmDescriptor{{PID: 1}, {PID: 2}})
	assert.ErrorIs(t, err, ErrRewardRatePending)
	assert.Equal(t, []*big.Int{nil, nil}, rates)
}

func TestFilter(t *testing.T) {
	pools := []model.PoolFarmInfo{
		{FarmDescriptor: model.FarmDescriptor{Symbol: "BAO-XDAI LP", Name: "Bao Nectar"}},
		{FarmDescriptor: model.FarmDescriptor{Symbol: "WETH-USDC LP", Name: "Ether Stable"}},
	}

	assert.Len(t, Filter(pools, ""), 2)
	assert.Len(t, Filter(pools, "bao"), 1)
	assert.Len(t, Filter(pools, "STABLE"), 1)
	assert.Empty(t, Filter(pools, "lp"), "only the first symbol word is searched")
}
