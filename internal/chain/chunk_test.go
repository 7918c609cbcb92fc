package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCalls(t *testing.T) {
	got, err := SplitCalls(5, 2)
	require.NoError(t, err)

	assert.Equal(t, []CallRange{
		{From: 0, To: 2},
		{From: 2, To: 4},
		{From: 4, To: 5},
	}, got)
}

func TestSplitCallsSingle(t *testing.T) {
	got, err := SplitCalls(3, 10)
	require.NoError(t, err)
	assert.Equal(t, []CallRange{{From: 0, To: 3}}, got)
}

func TestSplitCallsEmpty(t *testing.T) {
	got, err := SplitCalls(0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSplitCallsInvalid(t *testing.T) {
	_, err := SplitCalls(1, 0)
	assert.Error(t, err)
	_, err = SplitCalls(-1, 1)
	assert.Error(t, err)
}
