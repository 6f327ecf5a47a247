package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

func snapshots(start time.Time, stepDays int, values ...float64) []common.Snapshot {
	history := make([]common.Snapshot, len(values))
	for idx, v := range values {
		history[idx] = common.Snapshot{
			Date:           start.AddDate(0, 0, idx*stepDays),
			PortfolioValue: fixed.FromFloat64(v),
		}
	}
	return history
}

func assertNear(t *testing.T, expected float64, actual fixed.Point, tolerance float64) {
	t.Helper()
	assert.InDelta(t, expected, actual.F64(), tolerance, "value %s", actual)
}

var start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCompute_EmptyHistory(t *testing.T) {
	_, err := Compute(nil, fixed.FromInt(1000, 0))
	assert.ErrorIs(t, err, ErrEmptyHistory)
}

func TestCompute_InvalidCapital(t *testing.T) {
	_, err := Compute(snapshots(start, 1, 100), fixed.Zero)
	assert.ErrorIs(t, err, ErrInvalidCapital)
}

func TestCompute_SingleSnapshot(t *testing.T) {
	report, err := Compute(snapshots(start, 1, 110), fixed.FromInt(100, 0))
	require.NoError(t, err)

	assertNear(t, 0.1, report.TotalReturn, 1e-12)
	assert.True(t, report.TIR.IsZero())
	assert.True(t, report.Volatility.IsZero())
	assert.True(t, report.Sharpe.IsZero())
	assert.True(t, report.MaxDrawdown.IsZero())
	assert.Equal(t, 1, report.NumRebalances)
	assert.Equal(t, 0, report.Days)
}

func TestCompute_OneYearDoubling(t *testing.T) {
	history := []common.Snapshot{
		{Date: start, PortfolioValue: fixed.FromInt(100000, 0)},
		{Date: start.AddDate(1, 0, 0), PortfolioValue: fixed.FromInt(200000, 0)},
	}

	report, err := Compute(history, fixed.FromInt(100000, 0))
	require.NoError(t, err)

	assert.Equal(t, 366, report.Days)
	assertNear(t, 1.0, report.TotalReturn, 1e-12)
	// 2^(365.25/366) - 1
	assertNear(t, 0.99716, report.TIR, 1e-4)
	assert.True(t, report.Volatility.IsZero(), "a single return has no sample deviation")
}

func TestCompute_VolatilityAndDrawdown(t *testing.T) {
	history := snapshots(start, 30, 100, 110, 99, 120)

	report, err := Compute(history, fixed.FromInt(100, 0))
	require.NoError(t, err)

	// returns 0.1, -0.1, 0.2121...
	assertNear(t, 2.50994, report.Volatility, 1e-4)
	assertNear(t, -0.1, report.MaxDrawdown, 1e-12)
	assertNear(t, 0.2, report.TotalReturn, 1e-12)
	assert.Equal(t, 90, report.Days)
	assert.True(t, report.Sharpe.IsPos())
	assertNear(t, report.TIR.F64()/report.Volatility.F64(), report.Sharpe, 1e-9)
	// only the -0.1 step is a shortfall
	assertNear(t, report.TIR.F64()/(0.1*math.Sqrt(252)), report.Sortino, 1e-6)
}

func TestCompute_Deterministic(t *testing.T) {
	history := snapshots(start, 7, 100, 104, 101, 108, 97, 115)

	a, err := Compute(history, fixed.FromInt(100, 0))
	require.NoError(t, err)
	b, err := Compute(history, fixed.FromInt(100, 0))
	require.NoError(t, err)

	assert.Equal(t, a.Map(), b.Map())
}

func TestCompute_TotalLoss(t *testing.T) {
	report, err := Compute(snapshots(start, 100, 100, 0), fixed.FromInt(100, 0))
	require.NoError(t, err)

	assert.True(t, report.TIR.Eq(fixed.NegOne))
	assertNear(t, -1, report.MaxDrawdown, 1e-12)
}

func TestCompute_ShortHorizon(t *testing.T) {
	limit := ratioLimit.F64()

	tests := []struct {
		name      string
		stepDays  int
		values    []float64
		want      float64
		tolerance float64
		saturated bool
	}{
		{"one day large gain", 1, []float64{100000, 115000}, limit, 0, true},
		{"two days large loss", 2, []float64{100000, 40000}, -1, 1e-9, false},
		{"one day small gain", 1, []float64{100000, 100010}, math.Pow(1.0001, 365.25) - 1, 1e-8, false},
		{"two days doubling with volatility", 1, []float64{100000, 200000, 200000}, limit, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Compute(snapshots(start, tt.stepDays, tt.values...), fixed.FromInt(100000, 0))
			require.NoError(t, err)

			assertNear(t, tt.want, report.TIR, tt.tolerance)
			assert.Equal(t, tt.saturated, report.Saturated)
			assert.True(t, report.Sharpe.Abs().Lte(ratioLimit))
			assert.True(t, report.Sortino.Abs().Lte(ratioLimit))
		})
	}
}

func TestDrawdownSeries(t *testing.T) {
	dd := DrawdownSeries(snapshots(start, 1, 100, 120, 90, 130))

	require.Len(t, dd, 4)
	assert.True(t, dd[0].IsZero())
	assert.True(t, dd[1].IsZero())
	assertNear(t, -0.25, dd[2], 1e-12)
	assert.True(t, dd[3].IsZero())
}

func TestRollingSharpe(t *testing.T) {
	history := snapshots(start, 1, 100, 101, 103, 102, 106, 107)

	assert.Nil(t, RollingSharpe(history, 1))
	assert.Nil(t, RollingSharpe(history, 10))

	rs := RollingSharpe(history, 3)
	assert.Len(t, rs, 3)

	flat := RollingSharpe(snapshots(start, 1, 100, 100, 100, 100), 2)
	require.Len(t, flat, 2)
	assert.True(t, flat[0].IsZero())
}

func TestCompare(t *testing.T) {
	a := Report{TotalReturn: fixed.FromFloat64(0.25), MaxDrawdown: fixed.FromFloat64(-0.1), NumRebalances: 12}
	b := Report{TotalReturn: fixed.FromFloat64(-0.05), NumRebalances: 6}

	rows := Compare([]NamedReport{{Name: "momentum", Report: a}, {Report: b}})

	require.Len(t, rows, 2)
	assert.Equal(t, "momentum", rows[0].Name)
	assert.Equal(t, "Strategy 2", rows[1].Name)
	assert.True(t, rows[0].TotalReturnPct.Eq(fixed.FromInt(25, 0)))
	assert.True(t, rows[0].MaxDrawdownPct.Eq(fixed.FromInt(-10, 0)))
	assert.Equal(t, 6, rows[1].Rebalances)
}

func TestReport_Print(t *testing.T) {
	report, err := Compute(snapshots(start, 30, 100, 105), fixed.FromInt(100, 0))
	require.NoError(t, err)

	assert.NotPanics(t, func() { report.Print(zap.NewNop()) })
	assert.Contains(t, report.Map(), "tir")
}
