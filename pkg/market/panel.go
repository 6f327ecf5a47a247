package market

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

var ErrNoData = errors.New("no market data")

// Provider fetches daily bars for a set of tickers. Tickers that fail are
// left out of the panel; ErrNoData is returned only when nothing was obtained.
type Provider interface {
	Get(ctx context.Context, tickers []string, from, to time.Time) (*Panel, error)
}

// Panel is an immutable table of daily bars ordered by (date, ticker).
// Truncated views share the underlying rows.
type Panel struct {
	bars    []common.Bar
	dates   []time.Time
	tickers []string

	// offsets[i] is the index of the first bar dated dates[i]
	offsets []int
	series  map[string][]int
}

// NewPanel builds a panel from unordered bars. Dates are normalized to the
// calendar day and a repeated (date, ticker) keeps the last occurrence.
func NewPanel(bars []common.Bar) *Panel {
	type key struct {
		date   time.Time
		ticker string
	}

	latest := make(map[key]int, len(bars))
	for idx, bar := range bars {
		latest[key{common.Day(bar.Date), bar.Symbol}] = idx
	}

	rows := make([]common.Bar, 0, len(latest))
	for k, idx := range latest {
		bar := bars[idx]
		bar.Date = k.date
		rows = append(rows, bar)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	return index(rows)
}

func index(rows []common.Bar) *Panel {
	p := &Panel{
		bars:   rows,
		series: make(map[string][]int),
	}

	for idx, bar := range rows {
		if len(p.dates) == 0 || !p.dates[len(p.dates)-1].Equal(bar.Date) {
			p.dates = append(p.dates, bar.Date)
			p.offsets = append(p.offsets, idx)
		}
		if _, ok := p.series[bar.Symbol]; !ok {
			p.tickers = append(p.tickers, bar.Symbol)
		}
		p.series[bar.Symbol] = append(p.series[bar.Symbol], idx)
	}

	sort.Strings(p.tickers)
	return p
}

func (p *Panel) Len() int {
	return len(p.bars)
}

func (p *Panel) Empty() bool {
	return len(p.bars) == 0
}

// Dates returns the distinct dates in ascending order.
func (p *Panel) Dates() []time.Time {
	dates := make([]time.Time, len(p.dates))
	copy(dates, p.dates)
	return dates
}

func (p *Panel) Tickers() []string {
	tickers := make([]string, len(p.tickers))
	copy(tickers, p.tickers)
	return tickers
}

func (p *Panel) Bars() []common.Bar {
	bars := make([]common.Bar, len(p.bars))
	copy(bars, p.bars)
	return bars
}

// LatestDate returns the most recent date on or before the given date.
func (p *Panel) LatestDate(onOrBefore time.Time) (time.Time, bool) {
	n := p.searchDate(onOrBefore)
	if n == 0 {
		return time.Time{}, false
	}
	return p.dates[n-1], true
}

// Truncate returns a view holding only rows dated on or before date.
func (p *Panel) Truncate(date time.Time) *Panel {
	n := p.searchDate(date)
	if n == len(p.dates) {
		return p
	}

	end := len(p.bars)
	if n < len(p.offsets) {
		end = p.offsets[n]
	}
	return index(p.bars[:end:end])
}

// Series returns the bars of ticker in date order.
func (p *Panel) Series(ticker string) []common.Bar {
	indices := p.series[ticker]
	bars := make([]common.Bar, len(indices))
	for i, idx := range indices {
		bars[i] = p.bars[idx]
	}
	return bars
}

// AdjCloses returns the adjusted close series of ticker in date order.
func (p *Panel) AdjCloses(ticker string) []fixed.Point {
	indices := p.series[ticker]
	closes := make([]fixed.Point, len(indices))
	for i, idx := range indices {
		closes[i] = p.bars[idx].AdjClose
	}
	return closes
}

func (p *Panel) Bar(date time.Time, ticker string) (common.Bar, bool) {
	date = common.Day(date)

	n := p.searchDate(date)
	if n == 0 || !p.dates[n-1].Equal(date) {
		return common.Bar{}, false
	}

	start := p.offsets[n-1]
	end := len(p.bars)
	if n < len(p.offsets) {
		end = p.offsets[n]
	}

	day := p.bars[start:end]
	i := sort.Search(len(day), func(i int) bool { return day[i].Symbol >= ticker })
	if i < len(day) && day[i].Symbol == ticker {
		return day[i], true
	}
	return common.Bar{}, false
}

// LatestBar returns the most recent bar of ticker dated on or before date.
func (p *Panel) LatestBar(ticker string, onOrBefore time.Time) (common.Bar, bool) {
	indices := p.series[ticker]
	n := sort.Search(len(indices), func(i int) bool { return p.bars[indices[i]].Date.After(onOrBefore) })
	if n == 0 {
		return common.Bar{}, false
	}
	return p.bars[indices[n-1]], true
}

// Prices returns adjusted closes at exactly date for the tickers that have a row.
func (p *Panel) Prices(date time.Time, tickers []string) common.Prices {
	prices := make(common.Prices, len(tickers))
	for _, ticker := range tickers {
		if bar, ok := p.Bar(date, ticker); ok {
			prices[ticker] = bar.AdjClose
		}
	}
	return prices
}

// searchDate returns the number of dates on or before date.
func (p *Panel) searchDate(date time.Time) int {
	return sort.Search(len(p.dates), func(i int) bool { return p.dates[i].After(date) })
}
