package farm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmScope/internal/chain"
	"farmScope/internal/dex"
	"farmScope/internal/model"
)

// Names used in PoolFarmInfo.Missing.
const (
	FieldPoolInfo    = "pool_info"
	FieldTotalSupply = "total_supply"
	FieldStaked      = "staked_amount"
)

// Aggregator reads per-farm state from the farming contract and the pairs.
type Aggregator struct {
	reader       chain.Reader
	masterFarmer common.Address
	rewardToken  model.Token
	logger       *zap.Logger
}

func NewAggregator(reader chain.Reader, masterFarmer common.Address, rewardToken model.Token, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		reader:       reader,
		masterFarmer: masterFarmer,
		rewardToken:  rewardToken,
		logger:       logger,
	}
}

// UserInfo returns the farms where account has a confirmed non-zero stake and
// a resolved pending reward.
// The second value is true while any read is still pending. A nil account
// is queried as the zero address.
func (a *Aggregator) UserInfo(ctx context.Context, farms []model.FarmDescriptor, account *common.Address) ([]model.UserFarmInfo, bool) {
	if len(farms) == 0 {
		return []model.UserFarmInfo{}, false
	}
	farmerABI, err := dex.MasterFarmerABI()
	if err != nil {
		a.logger.Error("parse master farmer abi", zap.Error(err))
		return []model.UserFarmInfo{}, false
	}

	var user common.Address
	if account != nil {
		user = *account
	}

	reqs := make([]chain.Request, 0, 2*len(farms))
	for _, farm := range farms {
		pid := new(big.Int).SetUint64(farm.PID)
		reqs = append(reqs,
			chain.Request{Target: a.masterFarmer, ABI: farmerABI, Method: "userInfo", Args: []interface{}{pid, user}},
			chain.Request{Target: a.masterFarmer, ABI: farmerABI, Method: "pendingReward", Args: []interface{}{pid, user}},
		)
	}
	reads := a.reader.Read(ctx, reqs)

	loading := false
	out := make([]model.UserFarmInfo, 0, len(farms))
	for i, farm := range farms {
		info, reward := reads[2*i], reads[2*i+1]
		if info.Status == chain.CallPending || reward.Status == chain.CallPending {
			loading = true
		}

		staked, pending := firstBig(info), firstBig(reward)
		if staked == nil || staked.Sign() <= 0 || pending == nil {
			continue
		}
		out = append(out, model.UserFarmInfo{
			FarmDescriptor: farm,
			StakedAmount:   model.NewTokenAmount(farm.LiquidityToken, staked),
			PendingReward:  model.NewTokenAmount(a.rewardToken, pending),
		})
	}
	return out, loading
}

// PoolInfo returns one entry per farm, in input order. rewardPerBlock lines
// up with farms; missing entries leave NewRewardPerBlock nil.
func (a *Aggregator) PoolInfo(ctx context.Context, farms []model.FarmDescriptor, rewardPerBlock []*big.Int) ([]model.PoolFarmInfo, bool) {
	if len(farms) == 0 {
		return []model.PoolFarmInfo{}, false
	}
	farmerABI, err := dex.MasterFarmerABI()
	if err != nil {
		a.logger.Error("parse master farmer abi", zap.Error(err))
		return []model.PoolFarmInfo{}, false
	}
	tokenABI, err := dex.ERC20ABI()
	if err != nil {
		a.logger.Error("parse erc20 abi", zap.Error(err))
		return []model.PoolFarmInfo{}, false
	}

	reqs := make([]chain.Request, 0, 1+3*len(farms))
	reqs = append(reqs, chain.Request{Target: a.masterFarmer, ABI: farmerABI, Method: "totalAllocPoint"})
	for _, farm := range farms {
		lp := farm.LiquidityToken.Address
		reqs = append(reqs,
			chain.Request{Target: a.masterFarmer, ABI: farmerABI, Method: "poolInfo", Args: []interface{}{new(big.Int).SetUint64(farm.PID)}},
			chain.Request{Target: lp, ABI: tokenABI, Method: "totalSupply"},
			chain.Request{Target: lp, ABI: tokenABI, Method: "balanceOf", Args: []interface{}{a.masterFarmer}},
		)
	}
	reads := a.reader.Read(ctx, reqs)

	totalWeight := firstBig(reads[0])
	loading := reads[0].Status == chain.CallPending

	out := make([]model.PoolFarmInfo, 0, len(farms))
	for i, farm := range farms {
		base := 1 + 3*i
		poolRead, supplyRead, stakedRead := reads[base], reads[base+1], reads[base+2]

		var reward *big.Int
		if i < len(rewardPerBlock) && rewardPerBlock[i] != nil {
			reward = new(big.Int).Set(rewardPerBlock[i])
		}

		weight := bigAt(poolRead, dex.PoolInfoAllocPoint)
		acc := bigAt(poolRead, dex.PoolInfoAccRewardPerShare)
		supply := firstBig(supplyRead)
		staked := firstBig(stakedRead)

		info := model.PoolFarmInfo{
			FarmDescriptor:    farm,
			NewRewardPerBlock: reward,
			TotalWeight:       copyBig(totalWeight),
		}

		var missing []string
		pending := false
		track := func(field string, read chain.Result, value *big.Int) {
			if value != nil {
				return
			}
			missing = append(missing, field)
			if read.Status == chain.CallPending {
				pending = true
			}
		}
		if weight == nil {
			acc = nil
		}
		track(FieldPoolInfo, poolRead, acc)
		track(FieldTotalSupply, supplyRead, supply)
		track(FieldStaked, stakedRead, staked)

		if poolRead.Status == chain.CallPending || supplyRead.Status == chain.CallPending || stakedRead.Status == chain.CallPending {
			loading = true
		}

		if len(missing) == 0 {
			info.StakedAmount = model.NewTokenAmount(farm.LiquidityToken, staked)
			info.TotalSupply = model.NewTokenAmount(farm.LiquidityToken, supply)
			info.AccRewardPerShare = model.NewTokenAmount(a.rewardToken, acc)
			info.PoolWeight = weight
			info.Status = model.Resolved
		} else {
			info.StakedAmount = model.NewTokenAmount(farm.LiquidityToken, big.NewInt(0))
			info.TotalSupply = model.NewTokenAmount(farm.LiquidityToken, big.NewInt(1))
			info.AccRewardPerShare = model.NewTokenAmount(a.rewardToken, big.NewInt(0))
			info.PoolWeight = big.NewInt(0)
			info.Missing = missing
			if pending {
				info.Status = model.Pending
			} else {
				info.Status = model.Unavailable
				a.logger.Debug("farm reads unavailable",
					zap.Uint64("pid", farm.PID),
					zap.Strings("missing", missing),
				)
			}
		}
		out = append(out, info)
	}
	return out, loading
}

func firstBig(read chain.Result) *big.Int {
	return bigAt(read, 0)
}

func bigAt(read chain.Result, index int) *big.Int {
	if !read.HasValues() || index >= len(read.Values) {
		return nil
	}
	value, ok := read.Values[index].(*big.Int)
	if !ok {
		return nil
	}
	return value
}

func copyBig(value *big.Int) *big.Int {
	if value == nil {
		return nil
	}
	return new(big.Int).Set(value)
}
