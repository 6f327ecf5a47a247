package common

import (
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

// Snapshot is the recorded ledger state at one rebalance event.
type Snapshot struct {
	Date            time.Time              `json:"date"`
	PortfolioValue  fixed.Point            `json:"portfolio_value"`
	Cash            fixed.Point            `json:"cash"`
	NumPositions    int                    `json:"num_positions"`
	Holdings        map[string]fixed.Point `json:"holdings"`
	SelectedTickers []string               `json:"selected_tickers"`
}
