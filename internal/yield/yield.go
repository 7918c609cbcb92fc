package yield

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"farmScope/internal/model"
)

// DefaultBlockTime is the xDai block interval.
const DefaultBlockTime = 5 * time.Second

const year = 365 * 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// BlocksPerYear returns how many blocks fit in a 365 day year.
func BlocksPerYear(blockTime time.Duration) int64 {
	if blockTime <= 0 {
		blockTime = DefaultBlockTime
	}
	return int64(year / blockTime)
}

// Estimator derives APY and TVL figures from pool state and prices.
type Estimator struct {
	blocksPerYear int64
}

func NewEstimator(blockTime time.Duration) *Estimator {
	return &Estimator{blocksPerYear: BlocksPerYear(blockTime)}
}

// APYInput carries everything one APY computation needs. Nil means unknown.
type APYInput struct {
	RewardPerBlock *big.Int
	RewardDecimals uint8
	PoolWeight     *big.Int
	TotalWeight    *big.Int
	RewardPriceUSD *decimal.Decimal
	TVLUSD         *decimal.Decimal
}

// APY returns the yearly percentage yield, or nil when it is undefined.
func (e *Estimator) APY(in APYInput) *decimal.Decimal {
	if in.RewardPerBlock == nil || in.PoolWeight == nil || in.TotalWeight == nil || in.RewardPriceUSD == nil || in.TVLUSD == nil {
		return nil
	}
	if in.TotalWeight.Sign() == 0 || in.TVLUSD.IsZero() {
		return nil
	}

	reward := decimal.NewFromBigInt(in.RewardPerBlock, -int32(in.RewardDecimals))
	numerator := decimal.NewFromInt(e.blocksPerYear).
		Mul(reward).
		Mul(decimal.NewFromBigInt(in.PoolWeight, 0)).
		Mul(*in.RewardPriceUSD).
		Mul(hundred)
	denominator := decimal.NewFromBigInt(in.TotalWeight, 0).Mul(*in.TVLUSD)

	apy := numerator.Div(denominator)
	return &apy
}

// StakedTVL values the staked share of a pair in USD. A pair is worth twice
// the value of its first priced reserve.
func (e *Estimator) StakedTVL(pool model.PoolFarmInfo, pair *model.Pair, prices PriceBook) *decimal.Decimal {
	if pool.Status != model.Resolved || pair == nil || pool.TotalSupply.IsZero() {
		return nil
	}

	var valuation *decimal.Decimal
	for _, reserve := range []model.TokenAmount{pair.Reserve0, pair.Reserve1} {
		price, ok := prices.Get(reserve.Token.Address)
		if !ok {
			continue
		}
		value := AmountDecimal(reserve).Mul(price).Mul(decimal.NewFromInt(2))
		valuation = &value
		break
	}
	if valuation == nil {
		return nil
	}

	staked := decimal.NewFromBigInt(pool.StakedAmount.Raw, 0)
	supply := decimal.NewFromBigInt(pool.TotalSupply.Raw, 0)
	tvl := valuation.Mul(staked).Div(supply)
	return &tvl
}

// Metrics combines StakedTVL and APY for one pool.
func (e *Estimator) Metrics(pool model.PoolFarmInfo, pair *model.Pair, prices PriceBook, rewardToken model.Token, rewardPriceUSD *decimal.Decimal) model.YieldMetrics {
	tvl := e.StakedTVL(pool, pair, prices)
	metrics := model.YieldMetrics{TVLUSD: tvl}
	if pool.Status != model.Resolved {
		return metrics
	}
	metrics.APY = e.APY(APYInput{
		RewardPerBlock: pool.NewRewardPerBlock,
		RewardDecimals: rewardToken.Decimals,
		PoolWeight:     pool.PoolWeight,
		TotalWeight:    pool.TotalWeight,
		RewardPriceUSD: rewardPriceUSD,
		TVLUSD:         tvl,
	})
	return metrics
}

// AmountDecimal converts a token amount to whole units.
func AmountDecimal(amount model.TokenAmount) decimal.Decimal {
	if amount.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount.Raw, -int32(amount.Token.Decimals))
}

// RatDecimal converts a rational to a decimal.
func RatDecimal(value *big.Rat) decimal.Decimal {
	return decimal.NewFromBigInt(value.Num(), 0).Div(decimal.NewFromBigInt(value.Denom(), 0))
}

// PriceBook maps token addresses to USD prices.
type PriceBook map[common.Address]decimal.Decimal

func (b PriceBook) Get(token common.Address) (decimal.Decimal, bool) {
	if b == nil {
		return decimal.Decimal{}, false
	}
	price, ok := b[token]
	return price, ok
}

func (b PriceBook) Set(token common.Address, price decimal.Decimal) {
	b[token] = price
}

// PriceFromPair prices token through a pair whose other side is already priced.
func PriceFromPair(pair *model.Pair, token model.Token, prices PriceBook) *decimal.Decimal {
	if pair == nil || !pair.Involves(token) {
		return nil
	}
	other := pair.Token0()
	if other.Equals(token) {
		other = pair.Token1()
	}
	otherPrice, ok := prices.Get(other.Address)
	if !ok {
		return nil
	}
	ratio, err := pair.PriceOf(token)
	if err != nil || ratio == nil {
		return nil
	}
	price := RatDecimal(ratio).Mul(otherPrice)
	return &price
}

// Extend prices every unpriced token reachable through one hop of the given pairs.
func (b PriceBook) Extend(pairs []*model.Pair) {
	for _, pair := range pairs {
		if pair == nil {
			continue
		}
		for _, token := range []model.Token{pair.Token0(), pair.Token1()} {
			if _, ok := b.Get(token.Address); ok {
				continue
			}
			if price := PriceFromPair(pair, token, b); price != nil {
				b.Set(token.Address, *price)
			}
		}
	}
}
