package cfg

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/peter-kozarec/rebalancer/pkg/ledger"
	"github.com/peter-kozarec/rebalancer/pkg/simulation"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

// File is the YAML layout of a run configuration. Absent keys keep the
// defaults of simulation.DefaultConfiguration.
type File struct {
	Tickers          []string       `yaml:"tickers"`
	InitialCapital   *fixed.Point   `yaml:"initial_capital"`
	StartDate        string         `yaml:"start_date"`
	EndDate          string         `yaml:"end_date"`
	LookbackPeriod   *int           `yaml:"lookback_period"`
	HoldingPeriod    *int           `yaml:"holding_period"`
	NAssets          *int           `yaml:"n_assets"`
	Strategy         string         `yaml:"strategy"`
	StrategyParams   map[string]any `yaml:"strategy_params"`
	AllocationMethod string         `yaml:"allocation_method"`
	CommissionBuy    *fixed.Point   `yaml:"commission_buy"`
	CommissionSell   *fixed.Point   `yaml:"commission_sell"`
	StopLoss         any            `yaml:"stop_loss"`
	Sweep            Sweep          `yaml:"sweep"`
}

type Sweep struct {
	HoldingPeriods []int `yaml:"holding_periods"`
	NAssets        []int `yaml:"n_assets"`
}

func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("os.ReadFile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, rejecting unknown keys.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("yaml.Decode: %w", err)
	}
	return f, nil
}

// Configuration overlays the file on the defaults. The result is not
// validated.
func (f File) Configuration() (simulation.Configuration, error) {
	c := simulation.DefaultConfiguration()

	for _, ticker := range f.Tickers {
		if ticker = strings.TrimSpace(ticker); ticker != "" {
			c.Tickers = append(c.Tickers, ticker)
		}
	}

	var err error
	if c.StartDate, err = parseDate("start_date", f.StartDate); err != nil {
		return c, err
	}
	if c.EndDate, err = parseDate("end_date", f.EndDate); err != nil {
		return c, err
	}

	if f.InitialCapital != nil {
		c.InitialCapital = *f.InitialCapital
	}
	if f.LookbackPeriod != nil {
		c.LookbackPeriod = *f.LookbackPeriod
	}
	if f.HoldingPeriod != nil {
		c.HoldingPeriod = *f.HoldingPeriod
	}
	if f.NAssets != nil {
		c.NAssets = *f.NAssets
	}
	if f.Strategy != "" {
		c.StrategyName = f.Strategy
	}
	c.StrategyParams = f.StrategyParams
	if f.AllocationMethod != "" {
		c.AllocationMethod = ledger.AllocationMethod(f.AllocationMethod)
	}
	if f.CommissionBuy != nil {
		c.CommissionBuy = *f.CommissionBuy
	}
	if f.CommissionSell != nil {
		c.CommissionSell = *f.CommissionSell
	}
	return c, nil
}

func (f File) Grid() simulation.Grid {
	return simulation.Grid{
		HoldingPeriods: f.Sweep.HoldingPeriods,
		NAssets:        f.Sweep.NAssets,
	}
}

// HasStopLoss reports whether the reserved stop_loss key was set.
func (f File) HasStopLoss() bool {
	return f.StopLoss != nil
}

func parseDate(key, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}
