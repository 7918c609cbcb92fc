package model

// Farm is the persisted form of a farm descriptor.
type Farm struct {
	ChainID        uint64 `json:"chain_id"`
	PID            uint64 `json:"pid"`
	LiquidityToken string `json:"liquidity_token"`
	Token0         string `json:"token0"`
	Token1         string `json:"token1"`
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	Icon           string `json:"icon"`
}

// FarmRecord flattens a descriptor for storage.
func FarmRecord(chainID uint64, d FarmDescriptor) Farm {
	return Farm{
		ChainID:        chainID,
		PID:            d.PID,
		LiquidityToken: d.LiquidityToken.Address.Hex(),
		Token0:         d.Token0.Hex(),
		Token1:         d.Token1.Hex(),
		Name:           d.Name,
		Symbol:         d.Symbol,
		Icon:           d.Icon,
	}
}
