package price

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmScope/internal/model"
)

func TestStaticFeed(t *testing.T) {
	feed := NewStaticFeed(decimal.RequireFromString("0.0042"))

	price, err := feed.RewardPriceUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.0042", price.String())
}

func TestHTTPFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bao-finance", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bao-finance":{"usd":0.00123}}`))
	}))
	defer server.Close()

	feed := NewHTTPFeed(HTTPConfig{URL: server.URL, TokenID: "bao-finance"})
	price, err := feed.RewardPriceUSD(context.Background())

	require.NoError(t, err)
	require.NotNil(t, price)
	assert.True(t, price.Equal(decimal.RequireFromString("0.00123")))
}

func TestHTTPFeedUnknownToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	price, err := NewHTTPFeed(HTTPConfig{URL: server.URL, TokenID: "missing"}).RewardPriceUSD(context.Background())
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestHTTPFeedStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewHTTPFeed(HTTPConfig{URL: server.URL, TokenID: "bao-finance"}).RewardPriceUSD(context.Background())
	assert.Error(t, err)
}

type stubPairs struct {
	result model.PairResult
}

func (s stubPairs) ResolveOne(ctx context.Context, tokenA, tokenB *model.Token) model.PairResult {
	return s.result
}

func TestPairFeed(t *testing.T) {
	reward := model.Token{ChainID: 100, Address: common.HexToAddress("0x00000000000000000000000000000000000000c3"), Decimals: 18}
	stable := model.Token{ChainID: 100, Address: common.HexToAddress("0x00000000000000000000000000000000000000b2"), Decimals: 6}
	pair, err := model.NewPair(
		model.NewTokenAmount(reward, new(big.Int).Mul(big.NewInt(1000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))),
		model.NewTokenAmount(stable, big.NewInt(5_000_000)),
		common.HexToAddress("0xfeed"),
	)
	require.NoError(t, err)

	feed := NewPairFeed(stubPairs{result: model.PairResult{State: model.PairExists, Pair: pair}}, reward, stable, decimal.NewFromInt(1))
	price, err := feed.RewardPriceUSD(context.Background())

	require.NoError(t, err)
	require.NotNil(t, price)
	assert.True(t, price.Equal(decimal.RequireFromString("0.005")), price.String())
}

func TestPairFeedLoading(t *testing.T) {
	feed := NewPairFeed(stubPairs{result: model.PairResult{State: model.PairLoading}}, model.Token{}, model.Token{}, decimal.NewFromInt(1))
	price, err := feed.RewardPriceUSD(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, price)

	feed = NewPairFeed(stubPairs{result: model.PairResult{State: model.PairNotExists}}, model.Token{}, model.Token{}, decimal.NewFromInt(1))
	_, err = feed.RewardPriceUSD(context.Background())
	assert.Error(t, err)
}
