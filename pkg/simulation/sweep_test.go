package simulation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/datasource/memory"
	"github.com/peter-kozarec/rebalancer/pkg/market"
)

type countingProvider struct {
	inner *memory.Provider
	calls atomic.Int32
}

func (p *countingProvider) Get(ctx context.Context, tickers []string, from, to time.Time) (*market.Panel, error) {
	p.calls.Add(1)
	return p.inner.Get(ctx, tickers, from, to)
}

func TestBacktester_Sweep(t *testing.T) {
	provider := &countingProvider{inner: testProvider()}
	b := NewBacktester(zap.NewNop(), provider)

	results, err := b.Sweep(context.Background(), baseConfig(fixedPick("A", "B", "C")), Grid{
		HoldingPeriods: []int{30, 15, 30},
		NAssets:        []int{3, 1},
	}, 3)
	require.NoError(t, err)

	assert.Equal(t, int32(1), provider.calls.Load(), "panel must be fetched once")
	require.Len(t, results, 4)

	expected := [][2]int{{15, 1}, {15, 3}, {30, 1}, {30, 3}}
	for idx, res := range results {
		assert.Equal(t, expected[idx][0], res.HoldingPeriod)
		assert.Equal(t, expected[idx][1], res.NAssets)
		require.NoError(t, res.Err)
		assert.Equal(t, res.HoldingPeriod, res.Result.Parameters.HoldingPeriod)
		assert.LessOrEqual(t, res.Result.Ledger.NumPositions(), res.NAssets)
	}

	assert.Greater(t, len(results[0].Result.History), len(results[2].Result.History))
	assert.NotEqual(t, results[0].Result.RunID, results[1].Result.RunID)
}

func TestBacktester_Sweep_CellFailureIsIsolated(t *testing.T) {
	picky := scorerFunc{name: "picky", fn: func(p *market.Panel, n int, date time.Time) ([]common.Candidate, error) {
		if n == 1 {
			return nil, nil
		}
		return fixedPick("A", "B").fn(p, n, date)
	}}

	results, err := NewBacktester(zap.NewNop(), testProvider()).Sweep(context.Background(), baseConfig(picky), Grid{
		NAssets: []int{1, 2},
	}, 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, ErrDegenerateRun)
	assert.Nil(t, results[0].Result)
	assert.NoError(t, results[1].Err)
	assert.NotNil(t, results[1].Result)
}

func TestBacktester_Sweep_InvalidCell(t *testing.T) {
	_, err := NewBacktester(zap.NewNop(), testProvider()).Sweep(context.Background(), baseConfig(fixedPick("A")), Grid{
		HoldingPeriods: []int{30, 0},
	}, 1)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestGrid_DefaultsToBase(t *testing.T) {
	cells := Grid{}.cells(baseConfig(fixedPick("A")))

	require.Len(t, cells, 1)
	assert.Equal(t, 30, cells[0].HoldingPeriod)
	assert.Equal(t, 2, cells[0].NAssets)
}
