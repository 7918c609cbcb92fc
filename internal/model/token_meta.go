package model

import "github.com/ethereum/go-ethereum/common"

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// ToToken binds the metadata to a chain.
func (m TokenMeta) ToToken(chainID uint64) Token {
	return Token{
		ChainID:  chainID,
		Address:  common.HexToAddress(m.Address),
		Decimals: m.Decimals,
		Symbol:   m.Symbol,
		Name:     m.Name,
	}
}
