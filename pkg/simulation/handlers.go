package simulation

import (
	"context"
	"errors"
	"time"

	"github.com/peter-kozarec/rebalancer/pkg/common"
)

var (
	ErrConfiguration   = errors.New("invalid configuration")
	ErrDataUnavailable = errors.New("data unavailable")
	ErrNoCandidates    = errors.New("strategy returned no candidates")
	ErrIterationPanic  = errors.New("iteration panicked")
	ErrDegenerateRun   = errors.New("backtest produced no snapshots")
)

// Skip describes an iteration that recorded no snapshot.
type Skip struct {
	Iteration int       `json:"iteration"`
	Scheduled time.Time `json:"scheduled"`
	// Date is the resolved trading date, zero when none was available.
	Date   time.Time `json:"date"`
	Reason error     `json:"-"`
}

// Outcome is the result of one clock iteration: exactly one of Snapshot and
// Skip is set.
type Outcome struct {
	Snapshot *common.Snapshot
	Skip     *Skip
}

func (o Outcome) Recorded() bool {
	return o.Snapshot != nil
}

type EventHandler[T any] = func(context.Context, T)

type SnapshotHandler EventHandler[common.Snapshot]
type SkipHandler EventHandler[Skip]
type TradeHandler EventHandler[common.Trade]

// Handlers receive run events synchronously on the simulation goroutine.
// Sweep shares them between concurrent runs. Nil handlers are ignored.
type Handlers struct {
	OnSnapshot SnapshotHandler
	OnSkip     SkipHandler
	OnTrade    TradeHandler
}

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			if handler != nil {
				handler(ctx, event)
			}
		}
	}
}

func (h Handlers) snapshot(ctx context.Context, s common.Snapshot) {
	if h.OnSnapshot != nil {
		h.OnSnapshot(ctx, s)
	}
}

func (h Handlers) skip(ctx context.Context, s Skip) {
	if h.OnSkip != nil {
		h.OnSkip(ctx, s)
	}
}

func (h Handlers) trade(ctx context.Context, t common.Trade) {
	if h.OnTrade != nil {
		h.OnTrade(ctx, t)
	}
}
