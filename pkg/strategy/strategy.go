package strategy

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/market"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidParams   = errors.New("invalid strategy parameters")
)

// Scorer ranks the tickers of a panel at date. The panel handed to Score never
// holds rows after date; implementations return at most n candidates ordered
// by descending score.
type Scorer interface {
	Name() string
	Score(ctx context.Context, panel *market.Panel, n int, date time.Time) ([]common.Candidate, error)
}

// rank sorts candidates by descending score, ticker ascending on ties, and
// keeps the first n.
func rank(candidates []common.Candidate, n int) []common.Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if c := candidates[i].Score.Cmp(candidates[j].Score); c != 0 {
			return c > 0
		}
		return candidates[i].Ticker < candidates[j].Ticker
	})

	if n >= 0 && len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
