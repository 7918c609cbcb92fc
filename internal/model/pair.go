package model

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	liquidityTokenDecimals = 18
	liquidityTokenSymbol   = "UNI-V2"
	liquidityTokenName     = "Uniswap V2"
)

var (
	ErrIdenticalTokens = errors.New("pair tokens are identical")
	ErrNegativeReserve = errors.New("pair reserve is negative")
	ErrTokenNotInPair  = errors.New("token is not part of the pair")
)

// PairState tags the outcome of a reserve lookup.
type PairState uint8

const (
	PairLoading PairState = iota
	PairNotExists
	PairExists
	PairInvalid
)

func (s PairState) String() string {
	switch s {
	case PairLoading:
		return "loading"
	case PairNotExists:
		return "not_exists"
	case PairExists:
		return "exists"
	case PairInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("pair_state(%d)", uint8(s))
	}
}

func (s PairState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PairState) UnmarshalText(text []byte) error {
	for _, state := range []PairState{PairLoading, PairNotExists, PairExists, PairInvalid} {
		if state.String() == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown pair state %q", text)
}

// Pair is a two-token liquidity pool with reserves held in canonical token order.
type Pair struct {
	Address        common.Address `json:"address"`
	LiquidityToken Token          `json:"liquidity_token"`
	Reserve0       TokenAmount    `json:"reserve0"`
	Reserve1       TokenAmount    `json:"reserve1"`
}

// NewPair sorts the two reserves by token address; address is the pool contract.
func NewPair(a, b TokenAmount, address common.Address) (*Pair, error) {
	if a.Token.Equals(b.Token) {
		return nil, ErrIdenticalTokens
	}
	if a.raw().Sign() < 0 || b.raw().Sign() < 0 {
		return nil, ErrNegativeReserve
	}
	if !a.Token.SortsBefore(b.Token) {
		a, b = b, a
	}
	return &Pair{
		Address: address,
		LiquidityToken: Token{
			ChainID:  a.Token.ChainID,
			Address:  address,
			Decimals: liquidityTokenDecimals,
			Symbol:   liquidityTokenSymbol,
			Name:     liquidityTokenName,
		},
		Reserve0: NewTokenAmount(a.Token, a.Raw),
		Reserve1: NewTokenAmount(b.Token, b.Raw),
	}, nil
}

func (p *Pair) Token0() Token {
	return p.Reserve0.Token
}

func (p *Pair) Token1() Token {
	return p.Reserve1.Token
}

// Involves reports whether token is one side of the pair.
func (p *Pair) Involves(token Token) bool {
	return p.Token0().Equals(token) || p.Token1().Equals(token)
}

func (p *Pair) ReserveOf(token Token) (TokenAmount, error) {
	switch {
	case p.Token0().Equals(token):
		return p.Reserve0, nil
	case p.Token1().Equals(token):
		return p.Reserve1, nil
	default:
		return TokenAmount{}, ErrTokenNotInPair
	}
}

// PriceOf returns how many units of the other token one unit of token is worth.
// A nil price means the pool holds none of token.
func (p *Pair) PriceOf(token Token) (*big.Rat, error) {
	base, err := p.ReserveOf(token)
	if err != nil {
		return nil, err
	}
	quote := p.Reserve1
	if p.Token1().Equals(token) {
		quote = p.Reserve0
	}
	if base.IsZero() {
		return nil, nil
	}
	return new(big.Rat).Quo(quote.Rat(), base.Rat()), nil
}

// PairResult is one slot of a pair lookup. Err is set when the read failed
// at transport level; the state then stays Loading.
type PairResult struct {
	State PairState `json:"state"`
	Pair  *Pair     `json:"pair,omitempty"`
	Err   error     `json:"-"`
}

// TokenPairRequest asks for the pool of two tokens; nil means the token is unknown.
type TokenPairRequest struct {
	TokenA *Token
	TokenB *Token
}
