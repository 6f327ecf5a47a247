package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

const RelativeMomentumName = "relative_momentum"

// LookbackParams bound the analysis window, counted in rows back from the
// latest row of each ticker.
type LookbackParams struct {
	LookbackStart int `mapstructure:"lookback_start"`
	LookbackEnd   int `mapstructure:"lookback_end"`
}

func DefaultLookbackParams() LookbackParams {
	return LookbackParams{LookbackStart: 365, LookbackEnd: 30}
}

func (p LookbackParams) validate(name string) error {
	if p.LookbackEnd < 0 {
		return fmt.Errorf("%w: %s lookback_end must not be negative, got %d", ErrInvalidParams, name, p.LookbackEnd)
	}
	if p.LookbackEnd >= p.LookbackStart {
		return fmt.Errorf("%w: %s lookback_end (%d) must be less than lookback_start (%d)",
			ErrInvalidParams, name, p.LookbackEnd, p.LookbackStart)
	}
	return nil
}

// window returns the adjusted closes from LookbackStart rows back up to, but
// excluding, LookbackEnd rows back. ok is false when the series is too short.
func (p LookbackParams) window(closes []fixed.Point) ([]fixed.Point, bool) {
	if len(closes) < p.LookbackStart {
		return nil, false
	}
	return closes[len(closes)-p.LookbackStart : len(closes)-p.LookbackEnd], true
}

// RelativeMomentum scores a ticker by its return between LookbackStart and
// LookbackEnd rows ago.
type RelativeMomentum struct {
	params LookbackParams
}

func NewRelativeMomentum(params LookbackParams) (*RelativeMomentum, error) {
	if err := params.validate(RelativeMomentumName); err != nil {
		return nil, err
	}
	return &RelativeMomentum{params: params}, nil
}

func (s *RelativeMomentum) Name() string {
	return RelativeMomentumName
}

func (s *RelativeMomentum) Score(ctx context.Context, panel *market.Panel, n int, _ time.Time) ([]common.Candidate, error) {
	var candidates []common.Candidate
	for _, ticker := range panel.Tickers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		closes := panel.AdjCloses(ticker)
		if len(closes) < s.params.LookbackStart {
			continue
		}

		first := closes[len(closes)-s.params.LookbackStart]
		last := closes[len(closes)-1]
		if s.params.LookbackEnd > 0 {
			last = closes[len(closes)-s.params.LookbackEnd]
		}
		if !first.IsPos() {
			continue
		}

		candidates = append(candidates, common.Candidate{Ticker: ticker, Score: last.Div(first).Sub(fixed.One)})
	}

	return rank(candidates, n), nil
}
