package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmScope/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "snapshots.jsonl")
	sink := NewJsonlStorage(path)

	first := model.NewSnapshot(100)
	first.Seq = 1
	second := model.NewSnapshot(100)
	second.Seq = 2
	second.Loading = true

	require.NoError(t, sink.Publish(context.Background(), first))
	require.NoError(t, sink.Publish(context.Background(), second))
	require.NoError(t, sink.Publish(context.Background(), nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 2)
	assert.Equal(t, float64(1), lines[0]["seq"])
	assert.Equal(t, float64(2), lines[1]["seq"])
	assert.Equal(t, true, lines[1]["loading"])
	assert.Equal(t, second.ID.String(), lines[1]["id"])
}
