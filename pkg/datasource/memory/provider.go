package memory

import (
	"context"
	"sync"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/market"
)

// Provider serves bars held in memory, keyed by ticker.
type Provider struct {
	mu   sync.RWMutex
	bars map[string][]common.Bar
}

func NewProvider(bars ...common.Bar) *Provider {
	p := &Provider{bars: make(map[string][]common.Bar)}
	p.Add(bars...)
	return p
}

func (p *Provider) Add(bars ...common.Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, bar := range bars {
		p.bars[bar.Symbol] = append(p.bars[bar.Symbol], bar)
	}
}

func (p *Provider) Get(ctx context.Context, tickers []string, from, to time.Time) (*market.Panel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	from, to = common.Day(from), common.Day(to)

	p.mu.RLock()
	defer p.mu.RUnlock()

	var selected []common.Bar
	for _, ticker := range tickers {
		for _, bar := range p.bars[ticker] {
			date := common.Day(bar.Date)
			if date.Before(from) || date.After(to) {
				continue
			}
			selected = append(selected, bar)
		}
	}

	if len(selected) == 0 {
		return nil, market.ErrNoData
	}
	return market.NewPanel(selected), nil
}
