package synthetic

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

var origin = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func TestBarGenerator_WeekdaysOnly(t *testing.T) {
	gen := NewBarGenerator("X", rand.New(rand.NewSource(1)), origin, origin.AddDate(0, 0, 27),
		fixed.FromInt64(100, 0), fixed.FromFloat64(0.05), fixed.FromFloat64(0.2), fixed.One.DivInt64(252))

	count := 0
	for {
		bar, err := gen.GetNext()
		if err == ErrEof {
			break
		}
		require.NoError(t, err)
		count++

		assert.NotEqual(t, time.Saturday, bar.Date.Weekday())
		assert.NotEqual(t, time.Sunday, bar.Date.Weekday())
		assert.True(t, bar.High.Gte(bar.Close) && bar.High.Gte(bar.Open), "high below body on %s", bar.Date)
		assert.True(t, bar.Low.Lte(bar.Close) && bar.Low.Lte(bar.Open), "low above body on %s", bar.Date)
		assert.True(t, bar.AdjClose.IsPos())
	}

	assert.Equal(t, 20, count)
}

func TestProvider_Deterministic(t *testing.T) {
	ctx := context.Background()
	tickers := []string{"AAA", "BBB"}

	a, err := NewProvider(zap.NewNop(), 7, origin).Get(ctx, tickers, origin, origin.AddDate(0, 2, 0))
	require.NoError(t, err)
	b, err := NewProvider(zap.NewNop(), 7, origin).Get(ctx, tickers, origin, origin.AddDate(0, 2, 0))
	require.NoError(t, err)

	assert.Equal(t, a.Bars(), b.Bars())
	assert.Equal(t, tickers, a.Tickers())
}

func TestProvider_RangeIndependent(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(zap.NewNop(), 3, origin)

	full, err := p.Get(ctx, []string{"AAA"}, origin, origin.AddDate(0, 3, 0))
	require.NoError(t, err)
	part, err := p.Get(ctx, []string{"AAA"}, origin.AddDate(0, 1, 0), origin.AddDate(0, 2, 0))
	require.NoError(t, err)

	for _, bar := range part.Bars() {
		other, ok := full.Bar(bar.Date, "AAA")
		require.True(t, ok)
		assert.True(t, other.AdjClose.Eq(bar.AdjClose))
	}
	assert.True(t, part.Dates()[0].After(origin.AddDate(0, 1, -1)))
}

func TestProvider_DistinctTickers(t *testing.T) {
	panel, err := NewProvider(zap.NewNop(), 1, origin).Get(context.Background(), []string{"AAA", "BBB"}, origin, origin.AddDate(0, 1, 0))
	require.NoError(t, err)

	a, b := panel.AdjCloses("AAA"), panel.AdjCloses("BBB")
	require.Equal(t, len(a), len(b))
	assert.NotEqual(t, a, b)
}

func TestProvider_NoData(t *testing.T) {
	p := NewProvider(zap.NewNop(), 1, origin)

	_, err := p.Get(context.Background(), []string{"AAA"}, origin.AddDate(-1, 0, 0), origin.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, market.ErrNoData)

	_, err = p.Get(context.Background(), nil, origin, origin.AddDate(0, 1, 0))
	assert.ErrorIs(t, err, market.ErrNoData)
}
