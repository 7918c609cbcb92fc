package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "FARMSCOPE"

// Config holds the chain and deployment settings shared by every command.
type Config struct {
	RPCURL         string `validate:"required"`
	ChainID        uint64 `validate:"required"`
	MasterFarmer   string `validate:"required,eth_addr"`
	Factory        string `validate:"required,eth_addr"`
	InitCodeHash   string `validate:"required,hexadecimal,len=66"`
	Multicall      string `validate:"omitempty,eth_addr"`
	RewardToken    string `validate:"required,eth_addr"`
	RewardDecimals uint8
	RewardSymbol   string
	FarmsFile      string `validate:"required"`
	Account        string `validate:"omitempty,eth_addr"`
	RewardPerBlock string `validate:"omitempty,numeric"`
	BlockTime      time.Duration
	BatchSize      int     `validate:"gt=0"`
	RatePerSecond  float64 `validate:"gte=0"`
	Burst          int     `validate:"gte=0"`
	MaxRetries     int     `validate:"gte=0"`
	RetryBackoff   time.Duration
	CallTimeout    time.Duration
	Price          PriceConfig
	LogLevel       string
}

// PriceConfig selects how the reward token is priced in USD.
type PriceConfig struct {
	Source     string `validate:"oneof=none static http pair"`
	USD        string `validate:"omitempty,numeric"`
	URL        string `validate:"omitempty,url"`
	TokenID    string
	QuoteToken string `validate:"omitempty,eth_addr"`
	QuoteUSD   string `validate:"omitempty,numeric"`
	// Anchors are "address=price" pairs for tokens with a known USD price.
	Anchors []string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(100))
	v.SetDefault("reward-decimals", 18)
	v.SetDefault("reward-symbol", "BAO")
	v.SetDefault("farms", "./farms.yaml")
	v.SetDefault("block-time", 5*time.Second)
	v.SetDefault("batch-size", 100)
	v.SetDefault("rate", 10.0)
	v.SetDefault("burst", 1)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 200*time.Millisecond)
	v.SetDefault("call-timeout", 20*time.Second)
	v.SetDefault("price-source", "none")
	v.SetDefault("price-quote-usd", "1")
	v.SetDefault("log-level", "info")

	v.SetDefault("interval", 15*time.Second)
	v.SetDefault("max-inflight", 2)
	v.SetDefault("stale-after", 4)
	v.SetDefault("snapshot-buffer", 16)
	v.SetDefault("listen", ":8080")
	v.SetDefault("redis-prefix", "farmscope")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		RPCURL:         v.GetString("rpc"),
		ChainID:        v.GetUint64("chain-id"),
		MasterFarmer:   v.GetString("master-farmer"),
		Factory:        v.GetString("factory"),
		InitCodeHash:   v.GetString("init-code-hash"),
		Multicall:      v.GetString("multicall"),
		RewardToken:    v.GetString("reward-token"),
		RewardDecimals: uint8(v.GetUint("reward-decimals")),
		RewardSymbol:   v.GetString("reward-symbol"),
		FarmsFile:      v.GetString("farms"),
		Account:        v.GetString("account"),
		RewardPerBlock: v.GetString("reward-per-block"),
		BlockTime:      v.GetDuration("block-time"),
		BatchSize:      v.GetInt("batch-size"),
		RatePerSecond:  v.GetFloat64("rate"),
		Burst:          v.GetInt("burst"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		CallTimeout:    v.GetDuration("call-timeout"),
		Price: PriceConfig{
			Source:     v.GetString("price-source"),
			USD:        v.GetString("price-usd"),
			URL:        v.GetString("price-url"),
			TokenID:    v.GetString("price-token-id"),
			QuoteToken: v.GetString("price-quote-token"),
			QuoteUSD:   v.GetString("price-quote-usd"),
			Anchors:    getStringSlice(v, "price-anchors"),
		},
		LogLevel: v.GetString("log-level"),
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Price.check(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (p PriceConfig) check() error {
	switch p.Source {
	case "static":
		if p.USD == "" {
			return fmt.Errorf("price-usd is required for the static price source")
		}
	case "http":
		if p.URL == "" || p.TokenID == "" {
			return fmt.Errorf("price-url and price-token-id are required for the http price source")
		}
	case "pair":
		if p.QuoteToken == "" {
			return fmt.Errorf("price-quote-token is required for the pair price source")
		}
	}
	return nil
}

var validate = validator.New()

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
