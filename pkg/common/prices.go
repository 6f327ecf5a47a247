package common

import (
	"sort"

	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

// Prices maps a ticker to its price at one simulated date.
type Prices map[string]fixed.Point

// Merge returns a new snapshot holding p overlaid with other.
func (p Prices) Merge(other Prices) Prices {
	merged := make(Prices, len(p)+len(other))
	for ticker, price := range p {
		merged[ticker] = price
	}
	for ticker, price := range other {
		merged[ticker] = price
	}
	return merged
}

func (p Prices) Tickers() []string {
	tickers := make([]string, 0, len(p))
	for ticker := range p {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}
