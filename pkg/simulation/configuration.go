package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/ledger"
	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/strategy"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

// StopLoss is reserved for forced exits between rebalances. A configured hook
// is reported as not implemented and never invoked.
type StopLoss func(ctx context.Context, l *ledger.Ledger, panel *market.Panel, date time.Time) []string

type Configuration struct {
	Tickers        []string
	InitialCapital fixed.Point
	StartDate      time.Time
	EndDate        time.Time

	// LookbackPeriod is the number of calendar days of warm-up history
	// fetched before StartDate.
	LookbackPeriod int
	// HoldingPeriod is the number of calendar days between rebalances.
	HoldingPeriod int
	NAssets       int

	// Strategy takes precedence over StrategyName when both are set.
	Strategy       strategy.Scorer
	StrategyName   string
	StrategyParams map[string]any

	AllocationMethod ledger.AllocationMethod
	CommissionBuy    fixed.Point
	CommissionSell   fixed.Point

	StopLoss StopLoss
}

func DefaultConfiguration() Configuration {
	return Configuration{
		InitialCapital:   fixed.FromInt(100000, 0),
		LookbackPeriod:   365,
		HoldingPeriod:    30,
		NAssets:          5,
		StrategyName:     strategy.PriceToSMARatioName,
		AllocationMethod: ledger.AllocationEqual,
		CommissionBuy:    fixed.FromInt(1, 3),
		CommissionSell:   fixed.FromInt(1, 3),
	}
}

func (c Configuration) Validate() error {
	var errs []error

	if len(c.Tickers) == 0 {
		errs = append(errs, errors.New("ticker universe is empty"))
	}
	if !c.InitialCapital.IsPos() {
		errs = append(errs, fmt.Errorf("initial capital must be positive, got %s", c.InitialCapital))
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		errs = append(errs, errors.New("start and end dates are required"))
	} else if c.StartDate.After(c.EndDate) {
		errs = append(errs, fmt.Errorf("start date %s is after end date %s",
			c.StartDate.Format(time.DateOnly), c.EndDate.Format(time.DateOnly)))
	}
	if c.LookbackPeriod < 0 {
		errs = append(errs, fmt.Errorf("lookback period must not be negative, got %d", c.LookbackPeriod))
	}
	if c.HoldingPeriod < 1 {
		errs = append(errs, fmt.Errorf("holding period must be at least one day, got %d", c.HoldingPeriod))
	}
	if c.NAssets < 1 {
		errs = append(errs, fmt.Errorf("portfolio size must be at least one, got %d", c.NAssets))
	}
	if !c.AllocationMethod.Valid() {
		errs = append(errs, fmt.Errorf("%w: unknown allocation method %q", ledger.ErrInvalidConfig, c.AllocationMethod))
	}
	if c.CommissionBuy.IsNeg() || c.CommissionBuy.Gte(fixed.One) {
		errs = append(errs, fmt.Errorf("%w: buy commission must be in [0,1), got %s", ledger.ErrInvalidConfig, c.CommissionBuy))
	}
	if c.CommissionSell.IsNeg() || c.CommissionSell.Gte(fixed.One) {
		errs = append(errs, fmt.Errorf("%w: sell commission must be in [0,1), got %s", ledger.ErrInvalidConfig, c.CommissionSell))
	}
	if c.Strategy == nil {
		if _, err := strategy.New(c.StrategyName, c.StrategyParams); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func (c Configuration) scorer() (strategy.Scorer, error) {
	if c.Strategy != nil {
		return c.Strategy, nil
	}
	s, err := strategy.New(c.StrategyName, c.StrategyParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return s, nil
}

func (c Configuration) strategyName() string {
	if c.Strategy != nil {
		return c.Strategy.Name()
	}
	return c.StrategyName
}

// dataStart is the first date the provider is asked for.
func (c Configuration) dataStart() time.Time {
	return c.startDay().AddDate(0, 0, -c.LookbackPeriod)
}

func (c Configuration) startDay() time.Time {
	return common.Day(c.StartDate)
}

func (c Configuration) endDay() time.Time {
	return common.Day(c.EndDate)
}
