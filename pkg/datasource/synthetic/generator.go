package synthetic

import (
	"errors"
	"math/rand"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

var (
	pointFive = fixed.FromInt64(5, 1)
	ErrEof    = errors.New("EOF")
)

// BarGenerator produces weekday daily bars following a geometric Brownian
// motion of the close price.
type BarGenerator struct {
	symbol string
	rng    *rand.Rand

	date      time.Time
	end       time.Time
	lastClose fixed.Point

	deltaLogPre1 fixed.Point
	deltaLogPre2 fixed.Point

	intradayRange float64
	avgVolume     fixed.Point

	normPriceDigits int
}

// NewBarGenerator starts at the first weekday on or after start and stops
// after end. mu and sigma are annualized; deltaT is the year fraction of one bar.
func NewBarGenerator(symbol string, rng *rand.Rand, start, end time.Time, startPrice, mu, sigma, deltaT fixed.Point) *BarGenerator {
	return &BarGenerator{
		symbol:    symbol,
		rng:       rng,
		date:      nextWeekday(common.Day(start)),
		end:       common.Day(end),
		lastClose: startPrice,

		deltaLogPre1: mu.Sub(sigma.Mul(sigma).Mul(pointFive)).Mul(deltaT),
		deltaLogPre2: sigma.Mul(deltaT.Sqrt()),

		intradayRange:   0.01,
		avgVolume:       fixed.FromInt64(1_000_000, 0),
		normPriceDigits: 4,
	}
}

func (g *BarGenerator) SetPriceDigits(digits int) {
	g.normPriceDigits = digits
}

func (g *BarGenerator) GetNext() (common.Bar, error) {
	if g.date.After(g.end) {
		return common.Bar{}, ErrEof
	}

	open := g.lastClose

	z := g.rng.NormFloat64()
	deltaLog := g.deltaLogPre1.Add(g.deltaLogPre2.Mul(fixed.FromFloat64(z)))
	closePrice := open.Mul(deltaLog.Exp()).Rescale(g.normPriceDigits)

	high := fixed.Max(open, closePrice).Mul(fixed.FromFloat64(1 + g.rng.Float64()*g.intradayRange))
	low := fixed.Min(open, closePrice).Mul(fixed.FromFloat64(1 - g.rng.Float64()*g.intradayRange))

	volume := g.avgVolume.Mul(fixed.FromFloat64(0.5 + g.rng.Float64())).Trunc(0)

	bar := common.Bar{
		Symbol:   g.symbol,
		Date:     g.date,
		Open:     open,
		High:     high.Rescale(g.normPriceDigits),
		Low:      low.Rescale(g.normPriceDigits),
		Close:    closePrice,
		AdjClose: closePrice,
		Volume:   volume,
	}

	g.lastClose = closePrice
	g.date = nextWeekday(g.date.AddDate(0, 0, 1))
	return bar, nil
}

func nextWeekday(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
