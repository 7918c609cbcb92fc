package dex

import "github.com/ethereum/go-ethereum/accounts/abi"

// Legacy tokens (MKR, SAI) return bytes32 for symbol and name, so metadata
// reads keep a second ABI to fall back on.
const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20Bytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI        = &lazyABI{json: erc20ABIJSON}
	erc20Bytes32ABI = &lazyABI{json: erc20Bytes32ABIJSON}
)

// ERC20ABI returns the standard token ABI with string symbol and name.
func ERC20ABI() (*abi.ABI, error) {
	return erc20ABI.get()
}
