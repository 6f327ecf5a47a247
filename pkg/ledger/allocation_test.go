package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

func TestLedger_CalculateTargetValues(t *testing.T) {
	l := newTestLedger(t, 100000, 0.001, 0.001)
	candidates := []common.Candidate{
		{Ticker: "A", Score: pt(2.0)},
		{Ticker: "B", Score: pt(2.0)},
		{Ticker: "C", Score: pt(1.0)},
	}
	total := fixed.FromInt(100000, 0)

	t.Run("score proportional", func(t *testing.T) {
		values, err := l.CalculateTargetValues(candidates, total, AllocationScoreProportional)
		require.NoError(t, err)

		assert.True(t, values["A"].Eq(fixed.FromInt(40000, 0)), "A: %s", values["A"])
		assert.True(t, values["B"].Eq(fixed.FromInt(40000, 0)), "B: %s", values["B"])
		assert.True(t, values["C"].Eq(fixed.FromInt(20000, 0)), "C: %s", values["C"])
	})

	t.Run("equal", func(t *testing.T) {
		values, err := l.CalculateTargetValues(candidates[:2], total, AllocationEqual)
		require.NoError(t, err)

		assert.Len(t, values, 2)
		assert.True(t, values["A"].Eq(fixed.FromInt(50000, 0)))
		assert.True(t, values["B"].Eq(fixed.FromInt(50000, 0)))
	})

	t.Run("zero score sum falls back to equal", func(t *testing.T) {
		zero := []common.Candidate{{Ticker: "A", Score: pt(1)}, {Ticker: "B", Score: pt(-1)}}
		values, err := l.CalculateTargetValues(zero, total, AllocationScoreProportional)
		require.NoError(t, err)

		assert.True(t, values["A"].Eq(fixed.FromInt(50000, 0)))
		assert.True(t, values["B"].Eq(fixed.FromInt(50000, 0)))
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := l.CalculateTargetValues(candidates, total, AllocationMethod("inverse_volatility"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("no candidates", func(t *testing.T) {
		values, err := l.CalculateTargetValues(nil, total, AllocationEqual)
		require.NoError(t, err)
		assert.Empty(t, values)
	})
}

func TestLedger_ConvertValuesToShares(t *testing.T) {
	l := newTestLedger(t, 100000, 0.001, 0.001)
	values := Values{"A": fixed.FromInt(10010, 0), "B": fixed.FromInt(5000, 0)}
	prices := common.Prices{"A": fixed.FromInt(100, 0)}

	shares := l.ConvertValuesToShares(values, prices)

	require.Len(t, shares, 1)
	assert.True(t, shares["A"].Eq(fixed.FromInt(100, 0)), "A: %s", shares["A"])
}

func TestLedger_ConvertThenBuyNeverOverspends(t *testing.T) {
	tests := []struct {
		name   string
		cb     float64
		prices []float64
	}{
		{"no commission", 0, []float64{13.37, 250.5, 1}},
		{"ten bps", 0.001, []float64{99.99, 0.35, 1234.5}},
		{"one percent", 0.01, []float64{7, 11, 13, 17}},
	}

	tickers := []string{"A", "B", "C", "D"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, 100000, tt.cb, 0.001)

			prices := make(common.Prices)
			candidates := make([]common.Candidate, 0, len(tt.prices))
			for i, p := range tt.prices {
				prices[tickers[i]] = pt(p)
				candidates = append(candidates, common.Candidate{Ticker: tickers[i], Score: fixed.One})
			}

			values, err := l.CalculateTargetValues(candidates, l.Cash(), AllocationEqual)
			require.NoError(t, err)

			for ticker, shares := range l.ConvertValuesToShares(values, prices) {
				require.NoError(t, l.Buy(ticker, shares, prices[ticker], testDate))
			}

			assert.True(t, l.Cash().Gte(CashEpsilon.Neg()), "cash: %s", l.Cash())
			assert.Equal(t, len(tt.prices), l.TradeCount())
		})
	}
}

func TestAllocationMethod_Valid(t *testing.T) {
	assert.True(t, AllocationEqual.Valid())
	assert.True(t, AllocationScoreProportional.Valid())
	assert.False(t, AllocationMethod("").Valid())
}
