package simulation

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/ledger"
	"github.com/peter-kozarec/rebalancer/pkg/metrics"
	"github.com/peter-kozarec/rebalancer/pkg/strategy"
	"github.com/peter-kozarec/rebalancer/pkg/utility"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

// Parameters echo the inputs of a run.
type Parameters struct {
	Tickers          []string                `json:"tickers"`
	InitialCapital   fixed.Point             `json:"initial_capital"`
	StartDate        time.Time               `json:"start_date"`
	EndDate          time.Time               `json:"end_date"`
	LookbackPeriod   int                     `json:"lookback_period"`
	HoldingPeriod    int                     `json:"holding_period"`
	NAssets          int                     `json:"n_assets"`
	Strategy         string                  `json:"strategy"`
	StrategyParams   map[string]any          `json:"strategy_params"`
	AllocationMethod ledger.AllocationMethod `json:"allocation_method"`
	CommissionBuy    fixed.Point             `json:"commission_buy"`
	CommissionSell   fixed.Point             `json:"commission_sell"`
}

func newParameters(cfg Configuration, scorer strategy.Scorer) Parameters {
	tickers := make([]string, len(cfg.Tickers))
	copy(tickers, cfg.Tickers)

	params := make(map[string]any, len(cfg.StrategyParams))
	for k, v := range cfg.StrategyParams {
		params[k] = v
	}

	return Parameters{
		Tickers:          tickers,
		InitialCapital:   cfg.InitialCapital,
		StartDate:        cfg.startDay(),
		EndDate:          cfg.endDay(),
		LookbackPeriod:   cfg.LookbackPeriod,
		HoldingPeriod:    cfg.HoldingPeriod,
		NAssets:          cfg.NAssets,
		Strategy:         scorer.Name(),
		StrategyParams:   params,
		AllocationMethod: cfg.AllocationMethod,
		CommissionBuy:    cfg.CommissionBuy,
		CommissionSell:   cfg.CommissionSell,
	}
}

type Result struct {
	RunID      utility.ExecutionID
	Metrics    metrics.Report
	History    []common.Snapshot
	Ledger     *ledger.Ledger
	Parameters Parameters
	Iterations int
	Skipped    []Skip
}

func (r *Result) PrintSummary(logger *zap.Logger) {
	p := r.Parameters

	logger.Info("backtest summary",
		zap.Stringer("run_id", r.RunID),
		zap.String("period", p.StartDate.Format(time.DateOnly)+" to "+p.EndDate.Format(time.DateOnly)),
		zap.String("initial_capital", p.InitialCapital.Rescale(2).String()),
		zap.Int("universe", len(p.Tickers)),
		zap.Int("n_assets", p.NAssets),
		zap.Int("holding_period", p.HoldingPeriod),
		zap.String("strategy", p.Strategy),
		zap.String("allocation", string(p.AllocationMethod)),
		zap.Int("iterations", r.Iterations),
		zap.Int("skipped", len(r.Skipped)),
		zap.Int("trades", r.Ledger.TradeCount()),
	)

	r.Metrics.Print(logger)

	if last := r.LastSnapshot(); last != nil {
		logger.Info("final portfolio",
			zap.String("cash", last.Cash.Rescale(2).String()),
			zap.Int("positions", last.NumPositions),
			zap.String("holdings", strings.Join(r.Ledger.HeldTickers(), ",")))
	}
}

func (r *Result) LastSnapshot() *common.Snapshot {
	if len(r.History) == 0 {
		return nil
	}
	return &r.History[len(r.History)-1]
}
