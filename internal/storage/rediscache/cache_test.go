package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmScope/internal/model"
)

func testSnapshot() *model.Snapshot {
	lp := model.Token{ChainID: 100, Address: common.HexToAddress("0x00000000000000000000000000000000000000d4"), Decimals: 18, Symbol: "LP"}
	snap := model.NewSnapshot(100)
	snap.Seq = 7
	snap.BlockNumber = 1234
	snap.PoolFarms = []model.PoolFarmInfo{{
		FarmDescriptor: model.FarmDescriptor{PID: 3, LiquidityToken: lp, Symbol: "LP"},
		StakedAmount:   model.NewTokenAmount(lp, big.NewInt(5)),
		TotalSupply:    model.NewTokenAmount(lp, big.NewInt(10)),
		PoolWeight:     big.NewInt(100),
		Status:         model.Pending,
		Missing:        []string{"total_supply"},
	}}
	snap.Pairs = []model.PairResult{{State: model.PairNotExists}}
	return snap
}

func TestCachePublish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db, "bao", time.Minute)
	snap := testSnapshot()
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectSet("bao:latest", string(payload), time.Minute).SetVal("OK")
	mock.ExpectPublish("bao:snapshots", string(payload)).SetVal(1)

	require.NoError(t, cache.Publish(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachePublishSetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db, "", 0)
	snap := testSnapshot()
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectSet("farmscope:latest", string(payload), 0).SetErr(errors.New("READONLY"))

	err = cache.Publish(context.Background(), snap)
	assert.ErrorContains(t, err, "READONLY")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheLatest(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db, "bao", 0)
	snap := testSnapshot()
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectGet("bao:latest").SetVal(string(payload))

	got, err := cache.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, uint64(7), got.Seq)
	require.Len(t, got.PoolFarms, 1)
	assert.Equal(t, model.Pending, got.PoolFarms[0].Status)
	assert.Equal(t, big.NewInt(5), got.PoolFarms[0].StakedAmount.Raw)
	assert.Equal(t, model.PairNotExists, got.Pairs[0].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheLatestMissing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := New(db, "bao", 0)

	mock.ExpectGet("bao:latest").RedisNil()

	got, err := cache.Latest(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, got)
}
