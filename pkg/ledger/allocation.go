package ledger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

type AllocationMethod string

const (
	AllocationEqual             AllocationMethod = "equal"
	AllocationScoreProportional AllocationMethod = "score_proportional"
)

func (m AllocationMethod) Valid() bool {
	return m == AllocationEqual || m == AllocationScoreProportional
}

// CalculateTargetValues splits total across candidates according to method.
func (l *Ledger) CalculateTargetValues(candidates []common.Candidate, total fixed.Point, method AllocationMethod) (Values, error) {
	switch method {
	case AllocationEqual:
		return equalWeight(candidates, total), nil
	case AllocationScoreProportional:
		return l.scoreProportional(candidates, total), nil
	default:
		return nil, fmt.Errorf("%w: unknown allocation method %q", ErrInvalidConfig, method)
	}
}

// ConvertValuesToShares sizes each target so that buying it including the buy
// commission costs exactly its target value. Unpriced tickers are dropped.
func (l *Ledger) ConvertValuesToShares(values Values, prices common.Prices) Shares {
	shares := make(Shares, len(values))
	gross := fixed.One.Add(l.commissionBuy)

	for _, ticker := range sortedKeys(values) {
		price, ok := prices[ticker]
		if !ok || price.Lte(fixed.Zero) {
			l.logger.Warn("no price available, skipping target", zap.String("ticker", ticker))
			continue
		}
		shares[ticker] = values[ticker].Div(gross).Div(price)
	}
	return shares
}

func equalWeight(candidates []common.Candidate, total fixed.Point) Values {
	values := make(Values, len(candidates))
	if len(candidates) == 0 {
		return values
	}

	each := total.DivInt(len(candidates))
	for _, c := range candidates {
		values[c.Ticker] = each
	}
	return values
}

func (l *Ledger) scoreProportional(candidates []common.Candidate, total fixed.Point) Values {
	scoreSum := fixed.Zero
	for _, c := range candidates {
		scoreSum = scoreSum.Add(c.Score)
	}

	if scoreSum.IsZero() {
		l.logger.Warn("total score is zero, falling back to equal weight", zap.Int("candidates", len(candidates)))
		return equalWeight(candidates, total)
	}

	values := make(Values, len(candidates))
	for _, c := range candidates {
		values[c.Ticker] = total.Mul(c.Score.Div(scoreSum))
	}
	return values
}
