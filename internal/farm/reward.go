package farm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"farmScope/internal/chain"
	"farmScope/internal/dex"
	"farmScope/internal/model"
)

// ErrRewardRatePending is returned while the reward rate read has not completed.
var ErrRewardRatePending = errors.New("reward rate read pending")

// RewardSource provides the reward emitted per block for each farm.
type RewardSource struct {
	reader       chain.Reader
	masterFarmer common.Address
	static       *big.Int
}

// NewRewardSource builds a source. A non-nil static rate skips the chain read.
func NewRewardSource(reader chain.Reader, masterFarmer common.Address, static *big.Int) *RewardSource {
	return &RewardSource{reader: reader, masterFarmer: masterFarmer, static: static}
}

// RewardPerBlock returns the global rate fanned out to every farm position.
// On error the slice is still len(farms) long with nil entries.
func (s *RewardSource) RewardPerBlock(ctx context.Context, farms []model.FarmDescriptor) ([]*big.Int, error) {
	out := make([]*big.Int, len(farms))
	if len(farms) == 0 {
		return out, nil
	}

	rate := s.static
	if rate == nil {
		var err error
		rate, err = s.read(ctx)
		if err != nil {
			return out, err
		}
	}

	for i := range out {
		out[i] = new(big.Int).Set(rate)
	}
	return out, nil
}

func (s *RewardSource) read(ctx context.Context) (*big.Int, error) {
	farmerABI, err := dex.MasterFarmerABI()
	if err != nil {
		return nil, fmt.Errorf("parse master farmer abi: %w", err)
	}
	reads := s.reader.Read(ctx, []chain.Request{{
		Target: s.masterFarmer,
		ABI:    farmerABI,
		Method: "getNewRewardPerBlock",
		Args:   []interface{}{big.NewInt(0)},
	}})
	read := reads[0]
	switch {
	case read.Status == chain.CallPending:
		return nil, ErrRewardRatePending
	case read.Status == chain.CallFailed:
		return nil, fmt.Errorf("read reward rate: %w", read.Err)
	}
	rate := firstBig(read)
	if rate == nil {
		return nil, fmt.Errorf("read reward rate: no data")
	}
	return rate, nil
}
