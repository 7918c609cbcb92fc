package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"farmScope/internal/farm"
	"farmScope/internal/model"
	"farmScope/internal/pairs"
)

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.CallTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func runPairs(cmd *cobra.Command, _ []string) error {
	values, _ := cmd.Flags().GetStringSlice("pair")
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if len(values) == 0 {
			reqs, _ := pairs.FarmRequests(a.farms, a.tokens)
			return printJSON(pairs.MatchFarms(a.resolver.Resolve(ctx, reqs), a.farms))
		}

		reqs := make([]model.TokenPairRequest, 0, len(values))
		for _, value := range values {
			req, err := a.pairRequest(ctx, value)
			if err != nil {
				return err
			}
			reqs = append(reqs, req)
		}
		return printJSON(a.resolver.Resolve(ctx, reqs))
	})
}

// pairRequest parses tokenA:tokenB. Tokens whose metadata cannot be read stay unknown.
func (a *app) pairRequest(ctx context.Context, value string) (model.TokenPairRequest, error) {
	left, right, ok := strings.Cut(value, ":")
	if !ok || !common.IsHexAddress(left) || !common.IsHexAddress(right) {
		return model.TokenPairRequest{}, fmt.Errorf("invalid pair %q: want tokenA:tokenB", value)
	}
	var req model.TokenPairRequest
	for i, address := range []string{left, right} {
		token, err := a.token(ctx, common.HexToAddress(address))
		if err != nil {
			a.logger.Warn("token metadata unavailable", zap.String("token", address), zap.Error(err))
			continue
		}
		if i == 0 {
			req.TokenA = &token
		} else {
			req.TokenB = &token
		}
	}
	return req, nil
}

type analyticsReport struct {
	BlockNumber uint64               `json:"block_number"`
	Loading     bool                 `json:"loading"`
	Farms       []model.PoolFarmInfo `json:"farms"`
	Yields      []model.FarmYield    `json:"yields"`
}

func runAnalytics(cmd *cobra.Command, _ []string) error {
	query, _ := cmd.Flags().GetString("query")
	return withApp(cmd, func(ctx context.Context, a *app) error {
		snap := a.collector().Collect(ctx)
		pools := farm.Filter(snap.PoolFarms, query)

		keep := make(map[uint64]bool, len(pools))
		for _, pool := range pools {
			keep[pool.PID] = true
		}
		yields := make([]model.FarmYield, 0, len(pools))
		for _, y := range snap.Yields {
			if keep[y.PID] {
				yields = append(yields, y)
			}
		}

		return printJSON(analyticsReport{
			BlockNumber: snap.BlockNumber,
			Loading:     snap.Loading,
			Farms:       pools,
			Yields:      yields,
		})
	})
}

type userReport struct {
	Account common.Address       `json:"account"`
	Loading bool                 `json:"loading"`
	Farms   []model.UserFarmInfo `json:"farms"`
}

func runUser(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		farms, loading := a.aggregator.UserInfo(ctx, a.farms, a.account)
		report := userReport{Loading: loading, Farms: farms}
		if a.account != nil {
			report.Account = *a.account
		}
		return printJSON(report)
	})
}
