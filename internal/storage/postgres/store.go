package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"farmScope/internal/model"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS farms (
	chain_id BIGINT NOT NULL,
	pid BIGINT NOT NULL,
	liquidity_token TEXT NOT NULL,
	token0 TEXT NOT NULL,
	token1 TEXT NOT NULL,
	name TEXT NOT NULL,
	symbol TEXT NOT NULL,
	icon TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pid)
);

CREATE TABLE IF NOT EXISTS farm_metrics (
	chain_id BIGINT NOT NULL,
	pid BIGINT NOT NULL,
	block_number BIGINT NOT NULL,
	snapshot_id UUID NOT NULL,
	taken_at TIMESTAMPTZ NOT NULL,
	staked_amount NUMERIC NOT NULL,
	total_supply NUMERIC NOT NULL,
	acc_reward_per_share NUMERIC NOT NULL,
	reward_per_block NUMERIC,
	pool_weight NUMERIC NOT NULL,
	staked_share NUMERIC,
	tvl_usd NUMERIC,
	apy NUMERIC,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pid, block_number)
);
`

// Store provides Postgres persistence for farm metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// Publish stores the farms and metric rows of a snapshot.
func (s *Store) Publish(ctx context.Context, snapshot *model.Snapshot) error {
	if snapshot == nil {
		return nil
	}
	farms := make([]model.Farm, 0, len(snapshot.PoolFarms))
	for _, pool := range snapshot.PoolFarms {
		farms = append(farms, model.FarmRecord(snapshot.ChainID, pool.FarmDescriptor))
	}
	if err := s.UpsertFarms(ctx, farms); err != nil {
		return fmt.Errorf("upsert farms: %w", err)
	}
	if err := s.InsertFarmMetrics(ctx, model.FarmMetricsFromSnapshot(snapshot)); err != nil {
		return fmt.Errorf("insert farm metrics: %w", err)
	}
	return nil
}

// UpsertFarms inserts or updates farm metadata.
func (s *Store) UpsertFarms(ctx context.Context, farms []model.Farm) error {
	if len(farms) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, farm := range farms {
		batch.Queue(`
			INSERT INTO farms (
				chain_id, pid, liquidity_token, token0, token1, name, symbol, icon, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (chain_id, pid)
			DO UPDATE SET
				liquidity_token = EXCLUDED.liquidity_token,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				name = EXCLUDED.name,
				symbol = EXCLUDED.symbol,
				icon = EXCLUDED.icon,
				updated_at = now()
		`,
			int64(farm.ChainID),
			int64(farm.PID),
			farm.LiquidityToken,
			farm.Token0,
			farm.Token1,
			farm.Name,
			farm.Symbol,
			farm.Icon,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range farms {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertFarmMetrics stores metric rows keyed by chain, pid and block.
// A second snapshot at the same block replaces the first.
func (s *Store) InsertFarmMetrics(ctx context.Context, metrics []model.FarmMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO farm_metrics (
				chain_id, pid, block_number, snapshot_id, taken_at,
				staked_amount, total_supply, acc_reward_per_share, reward_per_block, pool_weight,
				staked_share, tvl_usd, apy, status, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
			ON CONFLICT (chain_id, pid, block_number)
			DO UPDATE SET
				snapshot_id = EXCLUDED.snapshot_id,
				taken_at = EXCLUDED.taken_at,
				staked_amount = EXCLUDED.staked_amount,
				total_supply = EXCLUDED.total_supply,
				acc_reward_per_share = EXCLUDED.acc_reward_per_share,
				reward_per_block = EXCLUDED.reward_per_block,
				pool_weight = EXCLUDED.pool_weight,
				staked_share = EXCLUDED.staked_share,
				tvl_usd = EXCLUDED.tvl_usd,
				apy = EXCLUDED.apy,
				status = EXCLUDED.status,
				updated_at = now()
		`,
			int64(m.ChainID),
			int64(m.PID),
			int64(m.BlockNumber),
			m.SnapshotID,
			m.TakenAt,
			m.StakedAmount,
			m.TotalSupply,
			m.AccRewardPerShare,
			m.RewardPerBlock,
			m.PoolWeight,
			m.StakedShare,
			m.TVLUSD,
			m.APY,
			m.Status,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
