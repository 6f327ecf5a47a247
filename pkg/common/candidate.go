package common

import (
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

// Candidate is one ranked asset returned by a scoring strategy.
type Candidate struct {
	Ticker string      `json:"ticker"`
	Score  fixed.Point `json:"score"`
}

func CandidateTickers(candidates []Candidate) []string {
	tickers := make([]string, len(candidates))
	for idx, c := range candidates {
		tickers[idx] = c.Ticker
	}
	return tickers
}
