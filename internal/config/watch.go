package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// WatchConfig adds poller, sink and server settings to Config.
type WatchConfig struct {
	Config
	Interval       time.Duration `validate:"gt=0"`
	CycleTimeout   time.Duration
	MaxInFlight    int `validate:"gt=0"`
	StaleAfter     int `validate:"gte=0"`
	SnapshotBuffer int `validate:"gt=0"`
	Out            string
	PGDSN          string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisPrefix    string
	RedisTTL       time.Duration
	Listen         string
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return WatchConfig{}, err
	}
	base, err := fromViper(v)
	if err != nil {
		return WatchConfig{}, err
	}

	cfg := WatchConfig{
		Config:         base,
		Interval:       v.GetDuration("interval"),
		CycleTimeout:   v.GetDuration("cycle-timeout"),
		MaxInFlight:    v.GetInt("max-inflight"),
		StaleAfter:     v.GetInt("stale-after"),
		SnapshotBuffer: v.GetInt("snapshot-buffer"),
		Out:            v.GetString("out"),
		PGDSN:          v.GetString("pg-dsn"),
		RedisAddr:      v.GetString("redis-addr"),
		RedisPassword:  v.GetString("redis-password"),
		RedisDB:        v.GetInt("redis-db"),
		RedisPrefix:    v.GetString("redis-prefix"),
		RedisTTL:       v.GetDuration("redis-ttl"),
		Listen:         v.GetString("listen"),
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.Interval
	}

	if err := validate.Struct(cfg); err != nil {
		return WatchConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
