package farm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmScope/internal/model"
	"farmScope/internal/pairs"
	"farmScope/internal/price"
	"farmScope/internal/yield"
)

// PairResolver resolves pair requests in order.
type PairResolver interface {
	Resolve(ctx context.Context, reqs []model.TokenPairRequest) []model.PairResult
}

// BlockSource reports the current block number.
type BlockSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// CollectorConfig is the static input of every cycle.
type CollectorConfig struct {
	ChainID     uint64
	Farms       []model.FarmDescriptor
	Account     *common.Address
	RewardToken model.Token
	// Tokens holds metadata for farm pair tokens.
	Tokens map[common.Address]model.Token
	// Anchors are tokens with a fixed USD price, typically stablecoins.
	Anchors yield.PriceBook
}

// Collector runs one full read of the farming deployment and assembles a snapshot.
type Collector struct {
	cfg        CollectorConfig
	aggregator *Aggregator
	rewards    *RewardSource
	pairs      PairResolver
	feed       price.Feed
	estimator  *yield.Estimator
	blocks     BlockSource
	logger     *zap.Logger
}

func NewCollector(
	cfg CollectorConfig,
	aggregator *Aggregator,
	rewards *RewardSource,
	pairResolver PairResolver,
	feed price.Feed,
	estimator *yield.Estimator,
	blocks BlockSource,
	logger *zap.Logger,
) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		cfg:        cfg,
		aggregator: aggregator,
		rewards:    rewards,
		pairs:      pairResolver,
		feed:       feed,
		estimator:  estimator,
		blocks:     blocks,
		logger:     logger,
	}
}

// Collect never fails: reads that did not complete show up as loading or
// unavailable values inside the snapshot.
func (c *Collector) Collect(ctx context.Context) *model.Snapshot {
	snap := model.NewSnapshot(c.cfg.ChainID)
	snap.RewardToken = c.cfg.RewardToken
	if c.cfg.Account != nil {
		account := *c.cfg.Account
		snap.Account = &account
	}

	if c.blocks != nil {
		if number, err := c.blocks.BlockNumber(ctx); err == nil {
			snap.BlockNumber = number
		} else {
			c.logger.Warn("block number read failed", zap.Error(err))
		}
	}

	if c.feed != nil {
		rewardPrice, err := c.feed.RewardPriceUSD(ctx)
		if err != nil {
			c.logger.Warn("reward price unavailable", zap.Error(err))
		}
		snap.RewardPriceUSD = rewardPrice
	}

	reqs, _ := pairs.FarmRequests(c.cfg.Farms, c.cfg.Tokens)
	snap.Pairs = c.pairs.Resolve(ctx, reqs)

	rates, err := c.rewards.RewardPerBlock(ctx, c.cfg.Farms)
	if err != nil {
		c.logger.Warn("reward rate unavailable", zap.Error(err))
	}

	var poolLoading, userLoading bool
	snap.PoolFarms, poolLoading = c.aggregator.PoolInfo(ctx, c.cfg.Farms, rates)
	snap.UserFarms, userLoading = c.aggregator.UserInfo(ctx, c.cfg.Farms, c.cfg.Account)

	snap.Yields = c.yields(snap)
	snap.Loading = poolLoading || userLoading || pairsLoading(snap.Pairs)
	return snap
}

func (c *Collector) yields(snap *model.Snapshot) []model.FarmYield {
	prices := make(yield.PriceBook, len(c.cfg.Anchors)+1)
	for token, usd := range c.cfg.Anchors {
		prices.Set(token, usd)
	}
	if snap.RewardPriceUSD != nil {
		prices.Set(c.cfg.RewardToken.Address, *snap.RewardPriceUSD)
	}
	existing := make([]*model.Pair, 0, len(snap.Pairs))
	for _, res := range snap.Pairs {
		if res.State == model.PairExists {
			existing = append(existing, res.Pair)
		}
	}
	prices.Extend(existing)

	byFarm := pairs.MatchFarms(snap.Pairs, c.cfg.Farms)
	out := make([]model.FarmYield, 0, len(snap.PoolFarms))
	for i, pool := range snap.PoolFarms {
		var pair *model.Pair
		if i < len(byFarm) {
			pair = byFarm[i].Pair
		}
		out = append(out, model.FarmYield{
			PID:          pool.PID,
			Symbol:       pool.Symbol,
			YieldMetrics: c.estimator.Metrics(pool, pair, prices, c.cfg.RewardToken, snap.RewardPriceUSD),
		})
	}
	return out
}

func pairsLoading(results []model.PairResult) bool {
	for _, res := range results {
		if res.State == model.PairLoading {
			return true
		}
	}
	return false
}
