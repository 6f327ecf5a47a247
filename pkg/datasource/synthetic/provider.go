package synthetic

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

const providerComponentName = "datasource.synthetic.provider"

type Option func(*Provider)

func WithStartPrice(price fixed.Point) Option {
	return func(p *Provider) {
		p.startPrice = price
	}
}

func WithDrift(mu, sigma fixed.Point) Option {
	return func(p *Provider) {
		p.mu = mu
		p.sigma = sigma
	}
}

// Provider serves reproducible synthetic bars. Every ticker has its own
// random stream derived from the seed and the ticker name, and every series
// starts at origin, so a bar does not depend on the requested range.
type Provider struct {
	logger *zap.Logger
	seed   int64
	origin time.Time

	startPrice fixed.Point
	mu         fixed.Point
	sigma      fixed.Point
	deltaT     fixed.Point
}

func NewProvider(logger *zap.Logger, seed int64, origin time.Time, options ...Option) *Provider {
	p := &Provider{
		logger:     logger.Named(providerComponentName),
		seed:       seed,
		origin:     common.Day(origin),
		startPrice: fixed.FromInt64(100, 0),
		mu:         fixed.FromFloat64(0.08),
		sigma:      fixed.FromFloat64(0.25),
		deltaT:     fixed.One.DivInt64(252),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *Provider) Get(ctx context.Context, tickers []string, from, to time.Time) (*market.Panel, error) {
	from, to = common.Day(from), common.Day(to)

	var bars []common.Bar
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		series, err := p.series(ticker, from, to)
		if err != nil {
			p.logger.Warn("unable to generate series", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		bars = append(bars, series...)
	}

	if len(bars) == 0 {
		return nil, market.ErrNoData
	}
	return market.NewPanel(bars), nil
}

func (p *Provider) series(ticker string, from, to time.Time) ([]common.Bar, error) {
	gen := NewBarGenerator(ticker, rand.New(rand.NewSource(p.tickerSeed(ticker))), p.origin, to, p.startPrice, p.mu, p.sigma, p.deltaT)

	var bars []common.Bar
	for {
		bar, err := gen.GetNext()
		if errors.Is(err, ErrEof) {
			return bars, nil
		}
		if err != nil {
			return nil, err
		}
		if !bar.Date.Before(from) {
			bars = append(bars, bar)
		}
	}
}

func (p *Provider) tickerSeed(ticker string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	return p.seed ^ int64(h.Sum64())
}
