package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"farmScope/internal/model"
	"farmScope/internal/yield"
)

// Feed supplies the reward token USD price. A nil price means unknown.
type Feed interface {
	RewardPriceUSD(ctx context.Context) (*decimal.Decimal, error)
}

// StaticFeed always returns a configured price.
type StaticFeed struct {
	price *decimal.Decimal
}

func NewStaticFeed(price decimal.Decimal) *StaticFeed {
	return &StaticFeed{price: &price}
}

func (f *StaticFeed) RewardPriceUSD(context.Context) (*decimal.Decimal, error) {
	if f.price == nil {
		return nil, nil
	}
	price := *f.price
	return &price, nil
}

// HTTPConfig configures a simple-price style JSON endpoint.
type HTTPConfig struct {
	URL      string
	TokenID  string
	Currency string
	Timeout  time.Duration
	RetryMax int
}

// HTTPFeed reads {"<id>":{"<currency>":<price>}} documents.
type HTTPFeed struct {
	cfg    HTTPConfig
	client *retryablehttp.Client
}

func NewHTTPFeed(cfg HTTPConfig) *HTTPFeed {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	client.Logger = nil
	return &HTTPFeed{cfg: cfg, client: client}
}

func (f *HTTPFeed) RewardPriceUSD(ctx context.Context) (*decimal.Decimal, error) {
	reqURL, err := url.Parse(f.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse price url: %w", err)
	}
	query := reqURL.Query()
	query.Set("ids", f.cfg.TokenID)
	query.Set("vs_currencies", f.cfg.Currency)
	reqURL.RawQuery = query.Encode()

	req, err := retryablehttp.NewRequest(http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Add("accept", "application/json")

	res, err := f.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch price: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("fetch price: status %d: %s", res.StatusCode, body)
	}

	var doc map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}
	quotes, ok := doc[f.cfg.TokenID]
	if !ok {
		return nil, nil
	}
	price, ok := quotes[f.cfg.Currency]
	if !ok {
		return nil, nil
	}
	return &price, nil
}

// PairSource resolves a single pair.
type PairSource interface {
	ResolveOne(ctx context.Context, tokenA, tokenB *model.Token) model.PairResult
}

// PairFeed prices the reward token from its pool against a token of known USD value.
type PairFeed struct {
	pairs      PairSource
	reward     model.Token
	quote      model.Token
	quotePrice decimal.Decimal
}

func NewPairFeed(pairs PairSource, reward, quote model.Token, quotePrice decimal.Decimal) *PairFeed {
	return &PairFeed{pairs: pairs, reward: reward, quote: quote, quotePrice: quotePrice}
}

func (f *PairFeed) RewardPriceUSD(ctx context.Context) (*decimal.Decimal, error) {
	reward, quote := f.reward, f.quote
	res := f.pairs.ResolveOne(ctx, &reward, &quote)
	switch res.State {
	case model.PairExists:
	case model.PairLoading:
		if res.Err != nil {
			return nil, fmt.Errorf("resolve reward pair: %w", res.Err)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("reward pair %s", res.State)
	}
	prices := yield.PriceBook{f.quote.Address: f.quotePrice}
	return yield.PriceFromPair(res.Pair, f.reward, prices), nil
}
