package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"farmScope/internal/model"
)

// FarmEntry is one farm as written in the farms file.
type FarmEntry struct {
	PID     uint64 `mapstructure:"pid"`
	LPToken string `mapstructure:"lp_token" validate:"required,eth_addr"`
	Token0  string `mapstructure:"token0" validate:"omitempty,eth_addr"`
	Token1  string `mapstructure:"token1" validate:"omitempty,eth_addr"`
	Name    string `mapstructure:"name" validate:"required"`
	Symbol  string `mapstructure:"symbol" validate:"required"`
	Icon    string `mapstructure:"icon"`
	Weight  string `mapstructure:"weight"`
}

type farmFile struct {
	Farms []FarmEntry `mapstructure:"farms" validate:"required,min=1,dive"`
}

// LoadFarms reads and validates a YAML or JSON farms file. Order and
// duplicate pids are preserved.
func LoadFarms(path string, chainID uint64) ([]model.FarmDescriptor, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read farms file: %w", err)
	}

	var file farmFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode farms file: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid farms file: %w", err)
	}

	farms := make([]model.FarmDescriptor, 0, len(file.Farms))
	for _, entry := range file.Farms {
		farms = append(farms, entry.Descriptor(chainID))
	}
	return farms, nil
}

// Descriptor converts the entry to a farm descriptor. Liquidity tokens are
// 18-decimal pair tokens.
func (e FarmEntry) Descriptor(chainID uint64) model.FarmDescriptor {
	d := model.FarmDescriptor{
		PID: e.PID,
		LiquidityToken: model.Token{
			ChainID:  chainID,
			Address:  common.HexToAddress(e.LPToken),
			Decimals: 18,
			Symbol:   e.Symbol,
			Name:     e.Name,
		},
		Icon:   e.Icon,
		Name:   e.Name,
		Symbol: e.Symbol,
		Weight: e.Weight,
	}
	if e.Token0 != "" {
		d.Token0 = common.HexToAddress(e.Token0)
	}
	if e.Token1 != "" {
		d.Token1 = common.HexToAddress(e.Token1)
	}
	return d
}

// ParseAnchors parses "address=price" entries.
func ParseAnchors(entries []string) (map[common.Address]decimal.Decimal, error) {
	out := make(map[common.Address]decimal.Decimal, len(entries))
	for _, entry := range entries {
		address, price, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid price anchor %q: want address=price", entry)
		}
		address = strings.TrimSpace(address)
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid price anchor %q: bad address", entry)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil {
			return nil, fmt.Errorf("invalid price anchor %q: %w", entry, err)
		}
		out[common.HexToAddress(address)] = value
	}
	return out, nil
}
