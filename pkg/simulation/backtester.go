package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/ledger"
	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/metrics"
	"github.com/peter-kozarec/rebalancer/pkg/strategy"
	"github.com/peter-kozarec/rebalancer/pkg/utility"
)

const progressInterval = 10

type Option func(*Backtester)

func WithHandlers(handlers Handlers) Option {
	return func(b *Backtester) {
		b.handlers = handlers
	}
}

type Backtester struct {
	logger   *zap.Logger
	provider market.Provider
	handlers Handlers
}

func NewBacktester(logger *zap.Logger, provider market.Provider, options ...Option) *Backtester {
	b := &Backtester{
		logger:   logger,
		provider: provider,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Run fetches the price panel for cfg and simulates it.
func (b *Backtester) Run(ctx context.Context, cfg Configuration) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	panel, err := b.fetch(ctx, cfg.Tickers, cfg.dataStart(), cfg.endDay())
	if err != nil {
		return nil, err
	}
	return b.RunOnPanel(ctx, cfg, panel)
}

// RunOnPanel simulates cfg over an already loaded panel. The panel is only read.
func (b *Backtester) RunOnPanel(ctx context.Context, cfg Configuration, panel *market.Panel) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scorer, err := cfg.scorer()
	if err != nil {
		return nil, err
	}

	l, err := ledger.NewLedger(b.logger, cfg.InitialCapital, cfg.CommissionBuy, cfg.CommissionSell)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	r := &run{
		id:       utility.NewExecutionID(),
		logger:   b.logger,
		handlers: b.handlers,
		cfg:      cfg,
		scorer:   scorer,
		ledger:   l,
		panel:    panel,
	}
	r.logger = r.logger.With(zap.Stringer("run_id", r.id))

	return r.execute(ctx)
}

func (b *Backtester) fetch(ctx context.Context, tickers []string, from, to time.Time) (*market.Panel, error) {
	b.logger.Info("loading market data",
		zap.Int("tickers", len(tickers)),
		zap.Time("from", from),
		zap.Time("to", to))

	panel, err := b.provider.Get(ctx, tickers, from, to)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if panel == nil || panel.Empty() {
		return nil, fmt.Errorf("%w: provider returned no rows", ErrDataUnavailable)
	}

	b.logger.Info("market data loaded",
		zap.Int("rows", panel.Len()),
		zap.Int("tickers", len(panel.Tickers())))
	return panel, nil
}

type run struct {
	id       utility.ExecutionID
	logger   *zap.Logger
	handlers Handlers

	cfg    Configuration
	scorer strategy.Scorer
	ledger *ledger.Ledger
	panel  *market.Panel

	history []common.Snapshot
	skipped []Skip
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	start, end := r.cfg.startDay(), r.cfg.endDay()

	r.logger.Info("starting backtest",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("holding_period", r.cfg.HoldingPeriod),
		zap.Int("n_assets", r.cfg.NAssets),
		zap.String("strategy", r.scorer.Name()))

	iteration := 0
	for scheduled := start; !scheduled.After(end); scheduled = scheduled.AddDate(0, 0, r.cfg.HoldingPeriod) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iteration++

		outcome := r.step(ctx, iteration, scheduled)
		if outcome.Recorded() {
			r.history = append(r.history, *outcome.Snapshot)
			r.handlers.snapshot(ctx, *outcome.Snapshot)
		} else {
			r.skipped = append(r.skipped, *outcome.Skip)
			r.logger.Warn("iteration skipped",
				zap.Int("iteration", iteration),
				zap.Time("scheduled", scheduled),
				zap.Error(outcome.Skip.Reason))
			r.handlers.skip(ctx, *outcome.Skip)
		}

		if iteration%progressInterval == 0 {
			r.logger.Debug("backtest progress", zap.Int("iteration", iteration), zap.Time("scheduled", scheduled))
		}
	}

	r.logger.Info("backtest complete",
		zap.Int("iterations", iteration),
		zap.Int("snapshots", len(r.history)),
		zap.Int("skipped", len(r.skipped)))

	if len(r.history) == 0 {
		return nil, fmt.Errorf("%w: all %d iterations skipped", ErrDegenerateRun, iteration)
	}

	report, err := metrics.Compute(r.history, r.cfg.InitialCapital)
	if err != nil {
		return nil, err
	}
	if report.Saturated {
		r.logger.Warn("annualized metrics capped",
			zap.Int("days", report.Days),
			zap.String("total_return", report.TotalReturn.String()))
	}

	return &Result{
		RunID:      r.id,
		Metrics:    report,
		History:    r.history,
		Ledger:     r.ledger,
		Parameters: newParameters(r.cfg, r.scorer),
		Iterations: iteration,
		Skipped:    r.skipped,
	}, nil
}

// step runs MARK, SELECT, REBALANCE and RECORD for one scheduled date.
// Any failure, including a panic, turns the iteration into a skip.
func (r *run) step(ctx context.Context, iteration int, scheduled time.Time) (outcome Outcome) {
	var date time.Time
	tradesBefore := r.ledger.TradeCount()

	skip := func(reason error) Outcome {
		return Outcome{Skip: &Skip{Iteration: iteration, Scheduled: scheduled, Date: date, Reason: reason}}
	}

	defer func() {
		if p := recover(); p != nil {
			outcome = skip(fmt.Errorf("%w: %v", ErrIterationPanic, p))
		}
		for _, trade := range r.ledger.Trades()[tradesBefore:] {
			r.handlers.trade(ctx, trade)
		}
	}()

	date, ok := r.panel.LatestDate(scheduled)
	if !ok {
		return skip(fmt.Errorf("%w: no trading date on or before %s", ErrDataUnavailable, scheduled.Format(time.DateOnly)))
	}

	heldPrices, err := r.mark(date)
	if err != nil {
		return skip(err)
	}

	candidates, err := r.selectAssets(ctx, date)
	if err != nil {
		return skip(err)
	}

	if err := r.rebalance(candidates, heldPrices, date); err != nil {
		return skip(err)
	}

	return Outcome{Snapshot: r.record(date, candidates)}
}

// mark values the holdings at date. A holding without a row at date keeps its
// last known price; the iteration fails only when no holding is priced at date.
func (r *run) mark(date time.Time) (common.Prices, error) {
	held := r.ledger.HeldTickers()
	prices := r.panel.Prices(date, held)

	if len(held) > 0 && len(prices) == 0 {
		return nil, fmt.Errorf("%w: no prices for holdings on %s", ErrDataUnavailable, date.Format(time.DateOnly))
	}

	for _, ticker := range held {
		if _, ok := prices[ticker]; ok {
			continue
		}
		if bar, ok := r.panel.LatestBar(ticker, date); ok {
			r.logger.Warn("holding priced at stale close",
				zap.String("ticker", ticker),
				zap.Time("date", date),
				zap.Time("price_date", bar.Date))
			prices[ticker] = bar.AdjClose
		}
	}

	r.ledger.UpdateValue(prices, date)

	if r.cfg.StopLoss != nil && len(held) > 0 {
		r.logger.Warn("stop loss is not implemented, ignoring hook", zap.Time("date", date))
	}
	return prices, nil
}

func (r *run) selectAssets(ctx context.Context, date time.Time) ([]common.Candidate, error) {
	candidates, err := r.scorer.Score(ctx, r.panel.Truncate(date), r.cfg.NAssets, date)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", r.scorer.Name(), err)
	}

	if len(candidates) > r.cfg.NAssets {
		r.logger.Warn("strategy returned too many candidates, truncating",
			zap.String("strategy", r.scorer.Name()),
			zap.Int("returned", len(candidates)),
			zap.Int("n_assets", r.cfg.NAssets))
		candidates = candidates[:r.cfg.NAssets]
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w on %s", ErrNoCandidates, date.Format(time.DateOnly))
	}
	return candidates, nil
}

func (r *run) rebalance(candidates []common.Candidate, heldPrices common.Prices, date time.Time) error {
	targetPrices := r.panel.Prices(date, common.CandidateTickers(candidates))
	if len(targetPrices) == 0 {
		return fmt.Errorf("%w: no prices for selected assets on %s", ErrDataUnavailable, date.Format(time.DateOnly))
	}

	values, err := r.ledger.CalculateTargetValues(candidates, r.ledger.TotalValue(), r.cfg.AllocationMethod)
	if err != nil {
		return err
	}

	target := r.ledger.ConvertValuesToShares(values, targetPrices)
	return r.ledger.RebalanceRanked(target, common.CandidateTickers(candidates), heldPrices.Merge(targetPrices), date)
}

func (r *run) record(date time.Time, candidates []common.Candidate) *common.Snapshot {
	return &common.Snapshot{
		Date:            date,
		PortfolioValue:  r.ledger.TotalValue(),
		Cash:            r.ledger.Cash(),
		NumPositions:    r.ledger.NumPositions(),
		Holdings:        r.ledger.Holdings(),
		SelectedTickers: common.CandidateTickers(candidates),
	}
}

// IsSkipReason reports whether err is an iteration-level failure that the loop
// absorbs rather than a fatal run error.
func IsSkipReason(err error) bool {
	return errors.Is(err, ErrDataUnavailable) ||
		errors.Is(err, ErrNoCandidates) ||
		errors.Is(err, ErrIterationPanic) ||
		errors.Is(err, ledger.ErrInvalidOrder) ||
		errors.Is(err, ledger.ErrPositionNotFound) ||
		errors.Is(err, ledger.ErrInsufficientPosition) ||
		errors.Is(err, ledger.ErrMissingPrice)
}
