package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

const PriceToSMARatioName = "price_to_sma_ratio"

type PriceToSMARatioParams struct {
	M int `mapstructure:"m"`
}

func DefaultPriceToSMARatioParams() PriceToSMARatioParams {
	return PriceToSMARatioParams{M: 50}
}

// PriceToSMARatio scores a ticker by its adjusted close over the simple
// moving average of its last M adjusted closes. Tickers without a row at the
// scoring date or with fewer than M rows are not ranked.
type PriceToSMARatio struct {
	m int
}

func NewPriceToSMARatio(params PriceToSMARatioParams) (*PriceToSMARatio, error) {
	if params.M < 1 {
		return nil, fmt.Errorf("%w: %s window must be positive, got %d", ErrInvalidParams, PriceToSMARatioName, params.M)
	}
	return &PriceToSMARatio{m: params.M}, nil
}

func (s *PriceToSMARatio) Name() string {
	return PriceToSMARatioName
}

func (s *PriceToSMARatio) Score(ctx context.Context, panel *market.Panel, n int, date time.Time) ([]common.Candidate, error) {
	date = common.Day(date)

	var candidates []common.Candidate
	for _, ticker := range panel.Tickers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		series := panel.Series(ticker)
		if len(series) < s.m || !series[len(series)-1].Date.Equal(date) {
			continue
		}

		rb := fixed.NewRingBuffer(s.m)
		for _, bar := range series[len(series)-s.m:] {
			rb.Add(bar.AdjClose)
		}

		sma := rb.Mean()
		if !sma.IsPos() {
			continue
		}
		candidates = append(candidates, common.Candidate{Ticker: ticker, Score: rb.Latest().Div(sma)})
	}

	return rank(candidates, n), nil
}
