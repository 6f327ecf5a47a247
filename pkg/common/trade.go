package common

import (
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

type TradeAction string

const (
	TradeActionBuy  TradeAction = "buy"
	TradeActionSell TradeAction = "sell"
)

type Trade struct {
	Date       time.Time   `json:"date"`
	Ticker     string      `json:"ticker"`
	Action     TradeAction `json:"action"`
	Shares     fixed.Point `json:"shares"`
	Price      fixed.Point `json:"price"`
	Commission fixed.Point `json:"commission"`
	GrossValue fixed.Point `json:"gross_value"`
}
