package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

func day(d int) time.Time {
	return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
}

func TestProvider_Get(t *testing.T) {
	p := NewProvider(
		common.Bar{Symbol: "A", Date: day(1), AdjClose: fixed.One},
		common.Bar{Symbol: "A", Date: day(2), AdjClose: fixed.Two},
		common.Bar{Symbol: "B", Date: day(2), AdjClose: fixed.Two},
		common.Bar{Symbol: "C", Date: day(3), AdjClose: fixed.One},
	)

	panel, err := p.Get(context.Background(), []string{"A", "B", "Z"}, day(2), day(3))
	require.NoError(t, err)

	assert.Equal(t, 2, panel.Len())
	assert.Equal(t, []string{"A", "B"}, panel.Tickers())
}

func TestProvider_NoData(t *testing.T) {
	p := NewProvider(common.Bar{Symbol: "A", Date: day(1), AdjClose: fixed.One})

	_, err := p.Get(context.Background(), []string{"A"}, day(2), day(9))
	assert.ErrorIs(t, err, market.ErrNoData)
}

func TestProvider_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider().Get(ctx, []string{"A"}, day(1), day(2))
	assert.ErrorIs(t, err, context.Canceled)
}
