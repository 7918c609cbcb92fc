package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	responses map[string][]byte
	calls     int
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	resp, ok := f.responses[string(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func selector(t *testing.T, method string) string {
	t.Helper()
	parsed, err := ERC20ABI()
	require.NoError(t, err)
	return string(parsed.Methods[method].ID)
}

func packOutput(t *testing.T, method string, bytes32 bool, value interface{}) []byte {
	t.Helper()
	parsed, err := erc20ABI.get()
	if bytes32 {
		parsed, err = erc20Bytes32ABI.get()
	}
	require.NoError(t, err)
	data, err := parsed.Methods[method].Outputs.Pack(value)
	require.NoError(t, err)
	return data
}

func TestFetchTokenMetaStringToken(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{
		selector(t, "decimals"): packOutput(t, "decimals", false, uint8(6)),
		selector(t, "symbol"):   packOutput(t, "symbol", false, "USDC"),
		selector(t, "name"):     packOutput(t, "name", false, "USD Coin"),
	}}
	token := common.HexToAddress("0x00000000000000000000000000000000000000b2")

	meta, err := FetchTokenMeta(context.Background(), caller, token, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), meta.Decimals)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Equal(t, "USD Coin", meta.Name)
	assert.Equal(t, token.Hex(), meta.Address)
}

func TestFetchTokenMetaBytes32Fallback(t *testing.T) {
	var symbol [32]byte
	copy(symbol[:], "MKR")
	caller := &fakeCaller{responses: map[string][]byte{
		selector(t, "decimals"): packOutput(t, "decimals", false, uint8(18)),
		selector(t, "symbol"):   packOutput(t, "symbol", true, symbol),
	}}

	meta, err := FetchTokenMeta(context.Background(), caller, common.HexToAddress("0x01"), nil)
	require.NoError(t, err)
	assert.Equal(t, "MKR", meta.Symbol)
	assert.Empty(t, meta.Name)
}

func TestFetchTokenMetaRequiresDecimals(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{}}
	_, err := FetchTokenMeta(context.Background(), caller, common.HexToAddress("0x01"), nil)
	assert.Error(t, err)
}

func TestLoadTokenUsesCache(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{
		selector(t, "decimals"): packOutput(t, "decimals", false, uint8(18)),
		selector(t, "symbol"):   packOutput(t, "symbol", false, "BAO"),
		selector(t, "name"):     packOutput(t, "name", false, "Bao Token"),
	}}
	cache := NewTokenMetaCache()
	address := common.HexToAddress("0x00000000000000000000000000000000000000c3")

	first, err := LoadToken(context.Background(), caller, cache, 100, address, nil)
	require.NoError(t, err)
	callsAfterFirst := caller.calls

	second, err := LoadToken(context.Background(), caller, cache, 100, address, nil)
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, caller.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(100), second.ChainID)
	assert.Equal(t, "BAO", second.Symbol)
}

func TestFetchPairTokens(t *testing.T) {
	pairABI, err := PairABI()
	require.NoError(t, err)
	token0 := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	token1 := common.HexToAddress("0x00000000000000000000000000000000000000b2")

	pack := func(method string, value interface{}) []byte {
		data, err := pairABI.Methods[method].Outputs.Pack(value)
		require.NoError(t, err)
		return data
	}
	caller := &fakeCaller{responses: map[string][]byte{
		string(pairABI.Methods["token0"].ID): pack("token0", token0),
		string(pairABI.Methods["token1"].ID): pack("token1", token1),
	}}

	got0, got1, err := FetchPairTokens(context.Background(), caller, common.HexToAddress("0xfeed"))
	require.NoError(t, err)
	assert.Equal(t, token0, got0)
	assert.Equal(t, token1, got1)
}
