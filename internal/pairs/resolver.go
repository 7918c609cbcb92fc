package pairs

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmScope/internal/chain"
	"farmScope/internal/dex"
	"farmScope/internal/model"
)

// Config identifies the pair factory on the target chain.
type Config struct {
	ChainID      uint64
	Factory      common.Address
	InitCodeHash common.Hash
}

// Resolver looks up V2 pairs and their reserves.
type Resolver struct {
	reader chain.Reader
	cfg    Config
	logger *zap.Logger
}

func NewResolver(reader chain.Reader, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{reader: reader, cfg: cfg, logger: logger}
}

// Resolve returns one result per request, in request order. Invalid requests
// are answered without touching the chain.
func (r *Resolver) Resolve(ctx context.Context, reqs []model.TokenPairRequest) []model.PairResult {
	results := make([]model.PairResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	pairABI, err := dex.PairABI()
	if err != nil {
		r.logger.Error("parse pair abi", zap.Error(err))
		for i := range results {
			results[i] = model.PairResult{State: model.PairLoading, Err: err}
		}
		return results
	}

	type lookup struct {
		slot           int
		token0, token1 model.Token
		address        common.Address
	}
	lookups := make([]lookup, 0, len(reqs))
	calls := make([]chain.Request, 0, len(reqs))

	for i, req := range reqs {
		if !r.valid(req) {
			results[i] = model.PairResult{State: model.PairInvalid}
			continue
		}
		token0, token1 := model.SortTokens(*req.TokenA, *req.TokenB)
		address := dex.PairAddress(r.cfg.Factory, r.cfg.InitCodeHash, token0.Address, token1.Address)
		lookups = append(lookups, lookup{slot: i, token0: token0, token1: token1, address: address})
		calls = append(calls, chain.Request{Target: address, ABI: pairABI, Method: "getReserves"})
	}
	if len(calls) == 0 {
		return results
	}

	reads := r.reader.Read(ctx, calls)
	for j, l := range lookups {
		results[l.slot] = r.toResult(l.token0, l.token1, l.address, reads[j])
	}
	return results
}

// ResolveOne resolves a single token pair.
func (r *Resolver) ResolveOne(ctx context.Context, tokenA, tokenB *model.Token) model.PairResult {
	return r.Resolve(ctx, []model.TokenPairRequest{{TokenA: tokenA, TokenB: tokenB}})[0]
}

func (r *Resolver) valid(req model.TokenPairRequest) bool {
	if req.TokenA == nil || req.TokenB == nil {
		return false
	}
	if req.TokenA.ChainID != r.cfg.ChainID || req.TokenB.ChainID != r.cfg.ChainID {
		return false
	}
	return !req.TokenA.Equals(*req.TokenB)
}

func (r *Resolver) toResult(token0, token1 model.Token, address common.Address, read chain.Result) model.PairResult {
	switch {
	case read.Status == chain.CallPending:
		return model.PairResult{State: model.PairLoading}
	case read.NoData():
		return model.PairResult{State: model.PairNotExists}
	case read.Status == chain.CallFailed:
		r.logger.Debug("pair reserves read failed", zap.String("pair", address.Hex()), zap.Error(read.Err))
		return model.PairResult{State: model.PairLoading, Err: read.Err}
	}

	if len(read.Values) < 2 {
		return model.PairResult{State: model.PairNotExists}
	}
	reserve0, ok0 := read.Values[0].(*big.Int)
	reserve1, ok1 := read.Values[1].(*big.Int)
	if !ok0 || !ok1 {
		return model.PairResult{State: model.PairNotExists}
	}

	pair, err := model.NewPair(
		model.NewTokenAmount(token0, reserve0),
		model.NewTokenAmount(token1, reserve1),
		address,
	)
	if err != nil {
		return model.PairResult{State: model.PairInvalid, Err: fmt.Errorf("build pair %s: %w", address.Hex(), err)}
	}
	return model.PairResult{State: model.PairExists, Pair: pair}
}

// FarmPair links a farm to the pair behind its liquidity token.
type FarmPair struct {
	Farm model.FarmDescriptor `json:"farm"`
	Pair *model.Pair          `json:"pair,omitempty"`
}

// MatchFarms joins existing pairs with farms by liquidity token address.
// Farms without a resolved pair keep a nil Pair.
func MatchFarms(results []model.PairResult, farms []model.FarmDescriptor) []FarmPair {
	byAddress := make(map[common.Address]*model.Pair, len(results))
	for _, res := range results {
		if res.State == model.PairExists && res.Pair != nil {
			byAddress[res.Pair.Address] = res.Pair
		}
	}
	out := make([]FarmPair, 0, len(farms))
	for _, farm := range farms {
		out = append(out, FarmPair{Farm: farm, Pair: byAddress[farm.LiquidityToken.Address]})
	}
	return out
}

// FarmRequests builds pair requests for farms with known pair tokens.
// The returned farms line up with the requests.
func FarmRequests(farms []model.FarmDescriptor, tokens map[common.Address]model.Token) ([]model.TokenPairRequest, []model.FarmDescriptor) {
	reqs := make([]model.TokenPairRequest, 0, len(farms))
	matched := make([]model.FarmDescriptor, 0, len(farms))
	for _, farm := range farms {
		if !farm.HasPairTokens() {
			continue
		}
		req := model.TokenPairRequest{}
		if token, ok := tokens[farm.Token0]; ok {
			token := token
			req.TokenA = &token
		}
		if token, ok := tokens[farm.Token1]; ok {
			token := token
			req.TokenB = &token
		}
		reqs = append(reqs, req)
		matched = append(matched, farm)
	}
	return reqs, matched
}
