package common

import (
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

// Bar is one daily OHLCV row of a single ticker.
type Bar struct {
	Symbol   string      `json:"symbol"`
	Date     time.Time   `json:"date"`
	Open     fixed.Point `json:"open"`
	High     fixed.Point `json:"high"`
	Low      fixed.Point `json:"low"`
	Close    fixed.Point `json:"close"`
	AdjClose fixed.Point `json:"adj_close"`
	Volume   fixed.Point `json:"volume"`
}

// Day truncates t to the calendar day in UTC. All dates crossing package
// boundaries are normalized through it.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
