package chain

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BlockNumberReader reads the current block number.
type BlockNumberReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// LatestBlockReader reads the head block number over plain RPC. *Client satisfies it.
type LatestBlockReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Blocks reads the block number through Multicall3 and falls back to
// eth_blockNumber when the multicall read fails.
type Blocks struct {
	primary  BlockNumberReader
	fallback LatestBlockReader
	logger   *zap.Logger
}

func NewBlocks(primary BlockNumberReader, fallback LatestBlockReader, logger *zap.Logger) *Blocks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Blocks{primary: primary, fallback: fallback, logger: logger}
}

func (b *Blocks) BlockNumber(ctx context.Context) (uint64, error) {
	number, err := b.primary.BlockNumber(ctx)
	if err == nil {
		return number, nil
	}
	if b.fallback == nil || ctx.Err() != nil {
		return 0, err
	}
	b.logger.Debug("multicall block number failed, using eth_blockNumber", zap.Error(err))
	number, fallbackErr := b.fallback.LatestBlockNumber(ctx)
	if fallbackErr != nil {
		return 0, fmt.Errorf("block number: %w", fallbackErr)
	}
	return number, nil
}
