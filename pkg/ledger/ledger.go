package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

var (
	ErrInvalidOrder         = errors.New("invalid order")
	ErrPositionNotFound     = errors.New("position not found")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrInvalidConfig        = errors.New("invalid ledger configuration")
	ErrMissingPrice         = errors.New("missing price")
)

var (
	// DustShares is the magnitude under which a holding is considered closed.
	DustShares = fixed.FromFloat64(1e-10)
	// CashEpsilon bounds the negative cash tolerated from rounding.
	CashEpsilon = fixed.FromFloat64(1e-8)

	cashWarnTolerance = fixed.One
	leakThreshold     = fixed.FromFloat64(0.01)
)

// Values maps a ticker to a target monetary value.
type Values map[string]fixed.Point

// Shares maps a ticker to a target share count.
type Shares map[string]fixed.Point

// Ledger owns cash, holdings and the trade history of a single backtest run.
// It is not safe for concurrent use and must not be shared between runs.
type Ledger struct {
	logger *zap.Logger

	initialCapital fixed.Point
	commissionBuy  fixed.Point
	commissionSell fixed.Point

	cash       fixed.Point
	totalValue fixed.Point
	holdings   map[string]fixed.Point
	trades     []common.Trade
}

func NewLedger(logger *zap.Logger, initialCapital, commissionBuy, commissionSell fixed.Point) (*Ledger, error) {
	if initialCapital.Lte(fixed.Zero) {
		return nil, fmt.Errorf("%w: initial capital must be positive, got %s", ErrInvalidConfig, initialCapital)
	}
	if commissionBuy.IsNeg() || commissionBuy.Gte(fixed.One) {
		return nil, fmt.Errorf("%w: buy commission must be in [0,1), got %s", ErrInvalidConfig, commissionBuy)
	}
	if commissionSell.IsNeg() || commissionSell.Gte(fixed.One) {
		return nil, fmt.Errorf("%w: sell commission must be in [0,1), got %s", ErrInvalidConfig, commissionSell)
	}

	return &Ledger{
		logger:         logger,
		initialCapital: initialCapital,
		commissionBuy:  commissionBuy,
		commissionSell: commissionSell,
		cash:           initialCapital,
		totalValue:     initialCapital,
		holdings:       make(map[string]fixed.Point),
	}, nil
}

// Buy debits cash and credits the holding. An order larger than the available
// cash is clamped to the maximum affordable share count instead of failing.
func (l *Ledger) Buy(ticker string, shares, price fixed.Point, date time.Time) error {
	if shares.Lte(fixed.Zero) {
		return fmt.Errorf("%w: cannot buy non-positive shares %s of %s", ErrInvalidOrder, shares, ticker)
	}
	if price.Lte(fixed.Zero) {
		return fmt.Errorf("%w: cannot buy %s at non-positive price %s", ErrInvalidOrder, ticker, price)
	}

	gross := shares.Mul(price)
	commission := gross.Mul(l.commissionBuy)
	total := gross.Add(commission)

	if total.Gt(l.cash) {
		if shortfall := total.Sub(l.cash); shortfall.Gt(cashWarnTolerance) {
			l.logger.Warn("insufficient cash, buying maximum affordable",
				zap.String("ticker", ticker),
				zap.Stringer("required", total),
				zap.Stringer("available", l.cash),
				zap.Stringer("shortfall", shortfall))
		}

		shares = l.maxAffordable(price)
		if shares.Lt(DustShares) {
			l.logger.Debug("no cash left to buy", zap.String("ticker", ticker), zap.Stringer("cash", l.cash))
			return nil
		}
		gross = shares.Mul(price)
		commission = gross.Mul(l.commissionBuy)
		total = gross.Add(commission)
	}

	l.cash = l.cash.Sub(total)
	l.holdings[ticker] = l.Position(ticker).Add(shares)
	l.record(date, ticker, common.TradeActionBuy, shares, price, commission, gross)
	return nil
}

// Sell liquidates the whole position of ticker.
func (l *Ledger) Sell(ticker string, price fixed.Point, date time.Time) error {
	shares, ok := l.holdings[ticker]
	if !ok {
		return fmt.Errorf("%w: cannot sell %s", ErrPositionNotFound, ticker)
	}
	return l.SellPartial(ticker, shares, price, date)
}

func (l *Ledger) SellPartial(ticker string, shares, price fixed.Point, date time.Time) error {
	held, ok := l.holdings[ticker]
	if !ok {
		return fmt.Errorf("%w: cannot sell %s", ErrPositionNotFound, ticker)
	}
	if shares.Lte(fixed.Zero) {
		return fmt.Errorf("%w: cannot sell non-positive shares %s of %s", ErrInvalidOrder, shares, ticker)
	}
	if shares.Gt(held) {
		return fmt.Errorf("%w: cannot sell %s shares of %s, only %s held", ErrInsufficientPosition, shares, ticker, held)
	}

	proceeds := shares.Mul(price)
	commission := proceeds.Mul(l.commissionSell)

	l.cash = l.cash.Add(proceeds.Sub(commission))

	remaining := held.Sub(shares)
	if remaining.Abs().Lt(DustShares) {
		delete(l.holdings, ticker)
	} else {
		l.holdings[ticker] = remaining
	}

	l.record(date, ticker, common.TradeActionSell, shares, price, commission, proceeds)
	return nil
}

// UpdateValue marks the ledger to market. Holdings without a price are valued at zero.
func (l *Ledger) UpdateValue(prices common.Prices, date time.Time) fixed.Point {
	value, missing := l.holdingsValue(prices)
	for _, ticker := range missing {
		l.logger.Warn("no price available, valuing holding at zero",
			zap.String("ticker", ticker),
			zap.Time("date", date))
	}
	l.totalValue = l.cash.Add(value)
	return l.totalValue
}

// Rebalance moves the holdings to target in two phases: sells first, then buys
// scaled down by the value the sells leaked to commissions. Buys run in
// ticker order.
func (l *Ledger) Rebalance(target Shares, prices common.Prices, date time.Time) error {
	return l.RebalanceRanked(target, nil, prices, date)
}

// RebalanceRanked is Rebalance with buys placed in ranking order, best first,
// so that when cash runs short the lowest ranked target is the one cut.
// Targets missing from ranking are bought last in ticker order.
func (l *Ledger) RebalanceRanked(target Shares, ranking []string, prices common.Prices, date time.Time) error {
	if err := l.checkPrices(target, prices); err != nil {
		return err
	}

	valueBefore := l.UpdateValue(prices, date)
	cashBefore := l.cash

	for _, ticker := range sortedKeys(l.holdings) {
		current := l.holdings[ticker]
		targetShares, ok := target[ticker]

		switch {
		case !ok || targetShares.IsZero():
			if err := l.Sell(ticker, prices[ticker], date); err != nil {
				return err
			}
		case targetShares.Lt(current):
			if err := l.SellPartial(ticker, current.Sub(targetShares), prices[ticker], date); err != nil {
				return err
			}
		}
	}

	valueAfter := l.UpdateValue(prices, date)
	leak := fixed.Max(valueBefore.Sub(valueAfter), fixed.Zero)
	fraction := l.buyFraction(cashBefore, leak)

	if leak.Gt(leakThreshold) {
		l.logger.Debug("value lost to sell commissions",
			zap.Time("date", date),
			zap.Stringer("leak", leak),
			zap.Stringer("buy_fraction", fraction))
	}

	for _, ticker := range buyOrder(target, ranking) {
		targetShares := target[ticker]
		current := l.Position(ticker)
		if targetShares.Lte(current) {
			continue
		}

		shares := targetShares.Sub(current).Mul(fraction)
		if shares.Lt(DustShares) || l.cash.Lte(fixed.Zero) {
			continue
		}
		if err := l.Buy(ticker, shares, prices[ticker], date); err != nil {
			return err
		}
	}

	l.UpdateValue(prices, date)
	return nil
}

func (l *Ledger) buyFraction(cashBefore, leak fixed.Point) fixed.Point {
	if leak.Lte(leakThreshold) {
		return fixed.One
	}

	intended := l.cash.Sub(cashBefore).Add(leak)
	if intended.Lte(fixed.Zero) {
		return fixed.Zero
	}
	return intended.Sub(leak).Div(intended).Clamp(fixed.Zero, fixed.One)
}

func (l *Ledger) checkPrices(target Shares, prices common.Prices) error {
	for ticker := range l.holdings {
		if _, ok := prices[ticker]; !ok {
			return fmt.Errorf("%w: held ticker %s", ErrMissingPrice, ticker)
		}
	}
	for ticker := range target {
		price, ok := prices[ticker]
		if !ok {
			return fmt.Errorf("%w: target ticker %s", ErrMissingPrice, ticker)
		}
		if price.Lte(fixed.Zero) {
			return fmt.Errorf("%w: non-positive price %s for %s", ErrInvalidOrder, price, ticker)
		}
	}
	return nil
}

func (l *Ledger) maxAffordable(price fixed.Point) fixed.Point {
	if l.cash.Lte(fixed.Zero) {
		return fixed.Zero
	}
	return l.cash.Div(price.Mul(fixed.One.Add(l.commissionBuy)))
}

func (l *Ledger) holdingsValue(prices common.Prices) (fixed.Point, []string) {
	var missing []string
	total := fixed.Zero

	for _, ticker := range sortedKeys(l.holdings) {
		price, ok := prices[ticker]
		if !ok {
			missing = append(missing, ticker)
			continue
		}
		total = total.Add(l.holdings[ticker].Mul(price))
	}
	return total, missing
}

func (l *Ledger) record(date time.Time, ticker string, action common.TradeAction, shares, price, commission, gross fixed.Point) {
	l.trades = append(l.trades, common.Trade{
		Date:       date,
		Ticker:     ticker,
		Action:     action,
		Shares:     shares,
		Price:      price,
		Commission: commission,
		GrossValue: gross,
	})
}

func (l *Ledger) InitialCapital() fixed.Point { return l.initialCapital }
func (l *Ledger) CommissionBuy() fixed.Point  { return l.commissionBuy }
func (l *Ledger) CommissionSell() fixed.Point { return l.commissionSell }
func (l *Ledger) Cash() fixed.Point           { return l.cash }
func (l *Ledger) NumPositions() int           { return len(l.holdings) }

// TotalValue is the value cached by the last mark to market.
func (l *Ledger) TotalValue() fixed.Point { return l.totalValue }

// HoldingsValue values the holdings at prices without touching the cached total.
func (l *Ledger) HoldingsValue(prices common.Prices) fixed.Point {
	value, _ := l.holdingsValue(prices)
	return value
}

// Position returns the shares held of ticker, zero when not held.
func (l *Ledger) Position(ticker string) fixed.Point {
	if shares, ok := l.holdings[ticker]; ok {
		return shares
	}
	return fixed.Zero
}

func (l *Ledger) Holdings() map[string]fixed.Point {
	holdings := make(map[string]fixed.Point, len(l.holdings))
	for ticker, shares := range l.holdings {
		holdings[ticker] = shares
	}
	return holdings
}

func (l *Ledger) HeldTickers() []string {
	return sortedKeys(l.holdings)
}

func (l *Ledger) Trades() []common.Trade {
	trades := make([]common.Trade, len(l.trades))
	copy(trades, l.trades)
	return trades
}

func (l *Ledger) TradeCount() int {
	return len(l.trades)
}

func buyOrder(target Shares, ranking []string) []string {
	order := make([]string, 0, len(target))
	seen := make(map[string]bool, len(target))
	for _, ticker := range ranking {
		if _, ok := target[ticker]; ok && !seen[ticker] {
			order = append(order, ticker)
			seen[ticker] = true
		}
	}
	for _, ticker := range sortedKeys(target) {
		if !seen[ticker] {
			order = append(order, ticker)
		}
	}
	return order
}

func sortedKeys(m map[string]fixed.Point) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
