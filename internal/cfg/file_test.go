package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/rebalancer/pkg/ledger"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

const document = `
tickers: [AAPL, MSFT, " GOOG ", ""]
initial_capital: 50000
start_date: 2020-01-01
end_date: "2023-12-31"
holding_period: 60
n_assets: 2
strategy: fip
strategy_params:
  lookback_start: 200
  only_sign: false
allocation_method: score_proportional
commission_buy: 0.002
sweep:
  holding_periods: [15, 30]
  n_assets: [3]
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(document))
	require.NoError(t, err)

	c, err := f.Configuration()
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, c.Tickers)
	assert.True(t, c.InitialCapital.Eq(fixed.FromInt(50000, 0)))
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), c.StartDate)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), c.EndDate)
	assert.Equal(t, 365, c.LookbackPeriod)
	assert.Equal(t, 60, c.HoldingPeriod)
	assert.Equal(t, 2, c.NAssets)
	assert.Equal(t, "fip", c.StrategyName)
	assert.Equal(t, 200, c.StrategyParams["lookback_start"])
	assert.Equal(t, false, c.StrategyParams["only_sign"])
	assert.Equal(t, ledger.AllocationScoreProportional, c.AllocationMethod)
	assert.True(t, c.CommissionBuy.Eq(fixed.FromInt(2, 3)))
	assert.True(t, c.CommissionSell.Eq(fixed.FromInt(1, 3)))
	assert.NoError(t, c.Validate())

	grid := f.Grid()
	assert.Equal(t, []int{15, 30}, grid.HoldingPeriods)
	assert.Equal(t, []int{3}, grid.NAssets)
	assert.False(t, f.HasStopLoss())
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("tickerz: [A]\n"))
	assert.Error(t, err)
}

func TestParse_BadDate(t *testing.T) {
	f, err := Parse([]byte("start_date: 01/02/2020\n"))
	require.NoError(t, err)

	_, err = f.Configuration()
	assert.ErrorContains(t, err, "start_date")
}

func TestParse_StopLossReserved(t *testing.T) {
	f, err := Parse([]byte("stop_loss: {pct: 0.1}\n"))
	require.NoError(t, err)
	assert.True(t, f.HasStopLoss())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Tickers, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
