package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmScope/internal/model"
)

func TestEmptyWritesSkipDatabase(t *testing.T) {
	store := &Store{}
	ctx := context.Background()

	require.NoError(t, store.Publish(ctx, nil))
	require.NoError(t, store.UpsertFarms(ctx, nil))
	require.NoError(t, store.InsertFarmMetrics(ctx, []model.FarmMetrics{}))
}

func TestSchemaKeys(t *testing.T) {
	assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS farms")
	assert.Contains(t, Schema, "PRIMARY KEY (chain_id, pid, block_number)")
}
