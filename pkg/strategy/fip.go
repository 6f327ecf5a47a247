package strategy

import (
	"context"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

const FIPName = "fip"

type FIPParams struct {
	LookbackParams `mapstructure:",squash"`
	OnlySign       bool `mapstructure:"only_sign"`
}

func DefaultFIPParams() FIPParams {
	return FIPParams{LookbackParams: DefaultLookbackParams(), OnlySign: true}
}

// FIP ranks gradual risers above jumpy ones: the window return (or only its
// sign) is weighted by the surplus of up days over down days per window day.
type FIP struct {
	params FIPParams
}

func NewFIP(params FIPParams) (*FIP, error) {
	if err := params.validate(FIPName); err != nil {
		return nil, err
	}
	return &FIP{params: params}, nil
}

func (s *FIP) Name() string {
	return FIPName
}

func (s *FIP) Score(ctx context.Context, panel *market.Panel, n int, _ time.Time) ([]common.Candidate, error) {
	span := fixed.FromInt(s.params.LookbackStart-s.params.LookbackEnd, 0)

	var candidates []common.Candidate
	for _, ticker := range panel.Tickers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window, ok := s.params.window(panel.AdjCloses(ticker))
		if !ok || len(window) < 2 {
			continue
		}

		first, last := window[0], window[len(window)-1]
		if !first.IsPos() {
			continue
		}

		var up, down int
		for _, change := range fixed.PctChange(window) {
			switch change.Sign() {
			case 1:
				up++
			case -1:
				down++
			}
		}

		ret := last.Div(first).Sub(fixed.One)
		weight := ret
		if s.params.OnlySign {
			weight = fixed.FromInt(ret.Sign(), 0)
		}

		score := weight.MulInt(up - down).Div(span)
		candidates = append(candidates, common.Candidate{Ticker: ticker, Score: score})
	}

	return rank(candidates, n), nil
}
