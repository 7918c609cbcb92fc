package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"farmScope/internal/config"
	"farmScope/internal/poller"
	"farmScope/internal/server"
	"farmScope/internal/storage"
	"farmScope/internal/storage/postgres"
	"farmScope/internal/storage/rediscache"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var sinks []storage.Sink
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}
	if cfg.RedisAddr != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer client.Close()
		sinks = append(sinks, rediscache.New(client, cfg.RedisPrefix, cfg.RedisTTL))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := poller.New(a.collector(), poller.Config{
		Interval:       cfg.Interval,
		CycleTimeout:   cfg.CycleTimeout,
		MaxInFlight:    cfg.MaxInFlight,
		StaleAfter:     cfg.StaleAfter,
		SnapshotBuffer: cfg.SnapshotBuffer,
	}, sinks, poller.NewMetrics(reg), logger)

	logger.Info("watch start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.Int("farms", len(a.farms)),
		zap.Duration("interval", cfg.Interval),
		zap.Int("max_inflight", cfg.MaxInFlight),
		zap.Int("sinks", len(sinks)),
		zap.String("listen", cfg.Listen),
	)

	errCh := make(chan error, 2)
	go func() { errCh <- p.Run(ctx) }()

	running := 1
	if cfg.Listen != "" {
		srv := server.New(cfg.Listen, p, reg, logger)
		go srv.Broadcast(ctx, p.Snapshots())
		go func() { errCh <- srv.Run(ctx) }()
		running++
	}

	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
			stop()
		}
	}
	if firstErr != nil {
		return fmt.Errorf("watch: %w", firstErr)
	}
	logger.Info("watch stopped")
	return nil
}
