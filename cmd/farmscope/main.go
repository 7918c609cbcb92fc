package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "farmscope",
		Short:        "Liquidity farm monitor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	addChainFlags(root.PersistentFlags())

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll farms continuously and publish snapshots",
		RunE:  runWatch,
	}
	watchCmd.Flags().Duration("interval", 15*time.Second, "poll interval")
	watchCmd.Flags().Duration("cycle-timeout", 0, "hard deadline per cycle, 0 means the interval")
	watchCmd.Flags().Int("max-inflight", 2, "maximum concurrent poll cycles")
	watchCmd.Flags().Int("stale-after", 4, "consecutive loading cycles before the stale gauge is raised")
	watchCmd.Flags().Int("snapshot-buffer", 16, "snapshots buffered for websocket subscribers")
	watchCmd.Flags().String("out", "", "append snapshots to this JSONL file")
	watchCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	watchCmd.Flags().String("redis-addr", "", "Redis address")
	watchCmd.Flags().String("redis-password", "", "Redis password")
	watchCmd.Flags().Int("redis-db", 0, "Redis database")
	watchCmd.Flags().String("redis-prefix", "farmscope", "Redis key prefix")
	watchCmd.Flags().Duration("redis-ttl", 0, "expiry of the latest snapshot key, 0 keeps it")
	watchCmd.Flags().String("listen", ":8080", "HTTP listen address, empty disables the server")
	root.AddCommand(watchCmd)

	pairsCmd := &cobra.Command{
		Use:   "pairs",
		Short: "Resolve liquidity pairs",
		RunE:  runPairs,
	}
	pairsCmd.Flags().StringSlice("pair", nil, "token pairs as tokenA:tokenB, defaults to the configured farms")
	root.AddCommand(pairsCmd)

	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print pool-wide farm info and yields",
		RunE:  runAnalytics,
	}
	analyticsCmd.Flags().String("query", "", "filter farms by token symbol or name")
	root.AddCommand(analyticsCmd)

	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Print the farms an account has staked in",
		RunE:  runUser,
	}
	root.AddCommand(userCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
