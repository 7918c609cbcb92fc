package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FarmDescriptor is the static configuration of one farming pool.
type FarmDescriptor struct {
	PID            uint64         `json:"pid"`
	LiquidityToken Token          `json:"liquidity_token"`
	Token0         common.Address `json:"token0"`
	Token1         common.Address `json:"token1"`
	Icon           string         `json:"icon"`
	Name           string         `json:"name"`
	Symbol         string         `json:"symbol"`
	Weight         string         `json:"weight"`
}

// HasPairTokens reports whether the underlying pair tokens are configured.
func (f FarmDescriptor) HasPairTokens() bool {
	return f.Token0 != (common.Address{}) && f.Token1 != (common.Address{})
}

// Availability tags whether a derived value rests on resolved reads.
type Availability uint8

const (
	Pending Availability = iota
	Resolved
	Unavailable
)

func (a Availability) String() string {
	switch a {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("availability(%d)", uint8(a))
	}
}

func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Availability) UnmarshalText(text []byte) error {
	for _, value := range []Availability{Pending, Resolved, Unavailable} {
		if value.String() == string(text) {
			*a = value
			return nil
		}
	}
	return fmt.Errorf("unknown availability %q", text)
}

// UserFarmInfo is an account's position in one farm.
type UserFarmInfo struct {
	FarmDescriptor
	StakedAmount  TokenAmount `json:"staked_amount"`
	PendingReward TokenAmount `json:"pending_reward"`
}

// PoolFarmInfo is the pool-wide view of one farm. When Status is not Resolved
// the amounts hold placeholder defaults and Missing names the absent reads.
type PoolFarmInfo struct {
	FarmDescriptor
	StakedAmount      TokenAmount  `json:"staked_amount"`
	TotalSupply       TokenAmount  `json:"total_supply"`
	AccRewardPerShare TokenAmount  `json:"acc_reward_per_share"`
	NewRewardPerBlock *big.Int     `json:"new_reward_per_block"`
	PoolWeight        *big.Int     `json:"pool_weight"`
	TotalWeight       *big.Int     `json:"total_weight"`
	Status            Availability `json:"status"`
	Missing           []string     `json:"missing,omitempty"`
}

// StakedShare returns staked/totalSupply as a percentage, nil unless resolved.
func (p PoolFarmInfo) StakedShare() *big.Rat {
	if p.Status != Resolved || p.TotalSupply.IsZero() {
		return nil
	}
	share := new(big.Rat).SetFrac(p.StakedAmount.raw(), p.TotalSupply.raw())
	return share.Mul(share, big.NewRat(100, 1))
}
