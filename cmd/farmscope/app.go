package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"farmScope/internal/chain"
	"farmScope/internal/config"
	"farmScope/internal/dex"
	"farmScope/internal/farm"
	"farmScope/internal/model"
	"farmScope/internal/pairs"
	"farmScope/internal/price"
	"farmScope/internal/yield"
)

func addChainFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "RPC URL")
	flags.Uint64("chain-id", 100, "expected chain id")
	flags.String("master-farmer", "", "MasterFarmer contract address")
	flags.String("factory", "", "pair factory address")
	flags.String("init-code-hash", "", "pair init code hash")
	flags.String("multicall", "", "Multicall3 address, defaults to the canonical deployment")
	flags.String("reward-token", "", "reward token address")
	flags.Uint("reward-decimals", 18, "reward token decimals")
	flags.String("reward-symbol", "BAO", "reward token symbol")
	flags.String("farms", "./farms.yaml", "farms file")
	flags.String("account", "", "account to report user positions for")
	flags.String("reward-per-block", "", "static reward per block in raw units, skips the chain read")
	flags.Duration("block-time", yield.DefaultBlockTime, "average block time")
	flags.Int("batch-size", 100, "calls per multicall request")
	flags.Float64("rate", 10, "multicall requests per second, 0 disables limiting")
	flags.Int("burst", 1, "multicall rate limiter burst")
	flags.Int("max-retries", 3, "retries per multicall request")
	flags.Duration("retry-backoff", 200*time.Millisecond, "initial retry backoff")
	flags.Duration("call-timeout", 20*time.Second, "deadline for one-shot commands")
	flags.String("price-source", "none", "reward price source (none, static, http, pair)")
	flags.String("price-usd", "", "static reward price in USD")
	flags.String("price-url", "", "price endpoint URL")
	flags.String("price-token-id", "", "price endpoint token id")
	flags.String("price-quote-token", "", "token the reward is quoted against for the pair source")
	flags.String("price-quote-usd", "1", "USD price of the quote token")
	flags.StringSlice("price-anchors", nil, "known token prices as address=usd")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

// app holds the wired read path shared by every command.
type app struct {
	cfg         config.Config
	logger      *zap.Logger
	client      *chain.Client
	multicall   *chain.Multicaller
	resolver    *pairs.Resolver
	aggregator  *farm.Aggregator
	rewards     *farm.RewardSource
	feed        price.Feed
	estimator   *yield.Estimator
	farms       []model.FarmDescriptor
	rewardToken model.Token
	tokens      map[common.Address]model.Token
	anchors     yield.PriceBook
	account     *common.Address
	metaCache   *dex.TokenMetaCache
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if chainID.Uint64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc serves chain %s, configured chain is %d", chainID, cfg.ChainID)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		estimator: yield.NewEstimator(cfg.BlockTime),
		tokens:    make(map[common.Address]model.Token),
		metaCache: dex.NewTokenMetaCache(),
	}

	var multicallAddress common.Address
	if cfg.Multicall != "" {
		multicallAddress = common.HexToAddress(cfg.Multicall)
	}
	a.multicall = chain.NewMulticaller(client, chain.MulticallConfig{
		Address:       multicallAddress,
		BatchSize:     cfg.BatchSize,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryBackoff,
	}, logger)

	a.resolver = pairs.NewResolver(a.multicall, pairs.Config{
		ChainID:      cfg.ChainID,
		Factory:      common.HexToAddress(cfg.Factory),
		InitCodeHash: common.HexToHash(cfg.InitCodeHash),
	}, logger)

	a.rewardToken = model.Token{
		ChainID:  cfg.ChainID,
		Address:  common.HexToAddress(cfg.RewardToken),
		Decimals: cfg.RewardDecimals,
		Symbol:   cfg.RewardSymbol,
		Name:     cfg.RewardSymbol,
	}
	masterFarmer := common.HexToAddress(cfg.MasterFarmer)
	a.aggregator = farm.NewAggregator(a.multicall, masterFarmer, a.rewardToken, logger)

	var static *big.Int
	if cfg.RewardPerBlock != "" {
		value, ok := new(big.Int).SetString(cfg.RewardPerBlock, 10)
		if !ok {
			client.Close()
			return nil, fmt.Errorf("invalid reward-per-block %q", cfg.RewardPerBlock)
		}
		static = value
	}
	a.rewards = farm.NewRewardSource(a.multicall, masterFarmer, static)

	if cfg.Account != "" {
		account := common.HexToAddress(cfg.Account)
		a.account = &account
	}

	anchors, err := config.ParseAnchors(cfg.Price.Anchors)
	if err != nil {
		client.Close()
		return nil, err
	}
	a.anchors = yield.PriceBook(anchors)

	farms, err := config.LoadFarms(cfg.FarmsFile, cfg.ChainID)
	if err != nil {
		client.Close()
		return nil, err
	}
	a.farms = a.loadPairTokens(ctx, farms)

	feed, err := a.newFeed(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	a.feed = feed

	return a, nil
}

func (a *app) Close() {
	a.client.Close()
}

// loadPairTokens fills in missing pair tokens from the liquidity token and
// loads metadata for every underlying token. Failures leave the token unknown.
func (a *app) loadPairTokens(ctx context.Context, farms []model.FarmDescriptor) []model.FarmDescriptor {
	out := make([]model.FarmDescriptor, len(farms))
	for i, f := range farms {
		if !f.HasPairTokens() {
			token0, token1, err := dex.FetchPairTokens(ctx, a.client, f.LiquidityToken.Address)
			if err != nil {
				a.logger.Warn("pair tokens unavailable",
					zap.Uint64("pid", f.PID),
					zap.String("lp_token", f.LiquidityToken.Address.Hex()),
					zap.Error(err),
				)
			} else {
				f.Token0, f.Token1 = token0, token1
			}
		}
		if f.HasPairTokens() {
			for _, address := range []common.Address{f.Token0, f.Token1} {
				if _, err := a.token(ctx, address); err != nil {
					a.logger.Warn("token metadata unavailable",
						zap.Uint64("pid", f.PID),
						zap.String("token", address.Hex()),
						zap.Error(err),
					)
				}
			}
		}
		out[i] = f
	}
	return out
}

func (a *app) token(ctx context.Context, address common.Address) (model.Token, error) {
	if token, ok := a.tokens[address]; ok {
		return token, nil
	}
	if address == a.rewardToken.Address {
		a.tokens[address] = a.rewardToken
		return a.rewardToken, nil
	}
	token, err := dex.LoadToken(ctx, a.client, a.metaCache, a.cfg.ChainID, address, a.logger)
	if err != nil {
		return model.Token{}, err
	}
	a.tokens[address] = token
	return token, nil
}

func (a *app) newFeed(ctx context.Context) (price.Feed, error) {
	p := a.cfg.Price
	switch p.Source {
	case "static":
		value, err := decimal.NewFromString(p.USD)
		if err != nil {
			return nil, fmt.Errorf("invalid price-usd: %w", err)
		}
		return price.NewStaticFeed(value), nil
	case "http":
		return price.NewHTTPFeed(price.HTTPConfig{
			URL:      p.URL,
			TokenID:  p.TokenID,
			Timeout:  a.cfg.CallTimeout,
			RetryMax: a.cfg.MaxRetries,
		}), nil
	case "pair":
		quote, err := a.token(ctx, common.HexToAddress(p.QuoteToken))
		if err != nil {
			return nil, fmt.Errorf("load quote token: %w", err)
		}
		quoteUSD, err := decimal.NewFromString(p.QuoteUSD)
		if err != nil {
			return nil, fmt.Errorf("invalid price-quote-usd: %w", err)
		}
		a.anchors.Set(quote.Address, quoteUSD)
		return price.NewPairFeed(a.resolver, a.rewardToken, quote, quoteUSD), nil
	default:
		return nil, nil
	}
}

func (a *app) collector() *farm.Collector {
	return farm.NewCollector(farm.CollectorConfig{
		ChainID:     a.cfg.ChainID,
		Farms:       a.farms,
		Account:     a.account,
		RewardToken: a.rewardToken,
		Tokens:      a.tokens,
		Anchors:     a.anchors,
	}, a.aggregator, a.rewards, a.resolver, a.feed, a.estimator, chain.NewBlocks(a.multicall, a.client, a.logger), a.logger)
}

func printJSON(value interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
