package metrics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

var (
	ErrEmptyHistory   = errors.New("cannot compute metrics from empty history")
	ErrInvalidCapital = errors.New("initial capital must be positive")
)

// ratioLimit bounds annualized figures so that a short run with a large
// return stays representable.
var ratioLimit = fixed.FromInt64(1_000_000_000_000, 0)

// Compute derives the performance statistics of a run from its snapshots.
func Compute(history []common.Snapshot, initialCapital fixed.Point) (Report, error) {
	if len(history) == 0 {
		return Report{}, ErrEmptyHistory
	}
	if initialCapital.Lte(fixed.Zero) {
		return Report{}, fmt.Errorf("%w: %s", ErrInvalidCapital, initialCapital)
	}

	first, last := history[0], history[len(history)-1]

	report := Report{
		StartDate:      first.Date,
		EndDate:        last.Date,
		InitialCapital: initialCapital,
		FinalValue:     last.PortfolioValue,
		NumRebalances:  len(history),
		Days:           elapsedDays(first.Date, last.Date),
	}

	report.TotalReturn = report.FinalValue.Sub(initialCapital).Div(initialCapital)
	report.Years = fixed.FromInt(report.Days, 0).Div(fixed.DaysPerYear)

	report.TIR, report.Saturated = annualizedReturn(report.FinalValue.Div(initialCapital), report.Days)

	values := portfolioValues(history)
	returns := fixed.PctChange(values)
	if len(returns) > 1 {
		report.Volatility = fixed.SampleStdDev(returns, fixed.Mean(returns)).Mul(fixed.Sqrt252)
		if report.Volatility.IsPos() {
			report.Sharpe = report.bounded(report.TIR, report.Volatility)
		}
		if downside := fixed.DownsideDeviation(returns, fixed.Zero).Mul(fixed.Sqrt252); downside.IsPos() {
			report.Sortino = report.bounded(report.TIR, downside)
		}
	}

	for _, dd := range drawdowns(values) {
		if dd.Lt(report.MaxDrawdown) {
			report.MaxDrawdown = dd
		}
	}

	return report, nil
}

// DrawdownSeries returns the relative distance of every snapshot value from
// its running maximum. Values are zero or negative.
func DrawdownSeries(history []common.Snapshot) []fixed.Point {
	return drawdowns(portfolioValues(history))
}

// RollingSharpe returns the annualized Sharpe ratio of each trailing window
// of per-step returns. The first window-1 entries are left out, so the result
// is aligned with the tail of the return series.
func RollingSharpe(history []common.Snapshot, window int) []fixed.Point {
	if window < 2 {
		return nil
	}

	returns := fixed.PctChange(portfolioValues(history))
	if len(returns) < window {
		return nil
	}

	rb := fixed.NewRingBuffer(window)
	out := make([]fixed.Point, 0, len(returns)-window+1)

	for _, r := range returns {
		rb.Add(r)
		if !rb.IsFull() {
			continue
		}

		std := rb.SampleStdDev()
		if std.IsZero() {
			out = append(out, fixed.Zero)
			continue
		}
		out = append(out, rb.Mean().Div(std).Mul(fixed.Sqrt252))
	}
	return out
}

// annualizedReturn compounds ratio over a year of days. Results outside
// the decimal range fall back to float64 and are capped at ratioLimit, in
// which case the second result is true.
func annualizedReturn(ratio fixed.Point, days int) (fixed.Point, bool) {
	if days <= 0 {
		return fixed.Zero, false
	}
	if ratio.Lte(fixed.Zero) {
		return fixed.NegOne, false
	}

	exponent := fixed.DaysPerYear.DivInt(days)
	if growth, err := ratio.TryPow(exponent); err == nil {
		if tir := growth.Sub(fixed.One); tir.Lte(ratioLimit) {
			return tir, false
		}
		return ratioLimit, true
	}

	tir := math.Pow(ratio.F64(), exponent.F64()) - 1
	return fixed.FromFloat64Clamped(tir, fixed.NegOne, ratioLimit), tir > ratioLimit.F64()
}

// bounded divides num by den, capping the magnitude at ratioLimit.
func (report *Report) bounded(num, den fixed.Point) fixed.Point {
	if q, err := num.TryDiv(den); err == nil && q.Abs().Lte(ratioLimit) {
		return q
	}
	report.Saturated = true
	if num.Sign()*den.Sign() < 0 {
		return ratioLimit.Neg()
	}
	return ratioLimit
}

func portfolioValues(history []common.Snapshot) []fixed.Point {
	values := make([]fixed.Point, len(history))
	for idx, s := range history {
		values[idx] = s.PortfolioValue
	}
	return values
}

func drawdowns(values []fixed.Point) []fixed.Point {
	peaks := fixed.RunningMax(values)
	out := make([]fixed.Point, len(values))

	for idx, v := range values {
		if !peaks[idx].IsPos() {
			out[idx] = fixed.Zero
			continue
		}
		out[idx] = v.Sub(peaks[idx]).Div(peaks[idx])
	}
	return out
}

func elapsedDays(from, to time.Time) int {
	return int(common.Day(to).Sub(common.Day(from)).Hours() / 24)
}
