package middleware

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/simulation"
)

// Telemetry counts events. Counters are atomic since sweep runs share
// handlers.
type Telemetry struct {
	logger *zap.Logger

	snapshotEventCounter atomic.Int64
	skipEventCounter     atomic.Int64
	tradeEventCounter    atomic.Int64
	buyCounter           atomic.Int64
	sellCounter          atomic.Int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger,
	}
}

func (t *Telemetry) WithSnapshot(handler simulation.SnapshotHandler) simulation.SnapshotHandler {
	return func(ctx context.Context, snapshot common.Snapshot) {
		t.snapshotEventCounter.Add(1)
		handler(ctx, snapshot)
	}
}

func (t *Telemetry) WithSkip(handler simulation.SkipHandler) simulation.SkipHandler {
	return func(ctx context.Context, skip simulation.Skip) {
		t.skipEventCounter.Add(1)
		handler(ctx, skip)
	}
}

func (t *Telemetry) WithTrade(handler simulation.TradeHandler) simulation.TradeHandler {
	return func(ctx context.Context, trade common.Trade) {
		t.tradeEventCounter.Add(1)
		switch trade.Action {
		case common.TradeActionBuy:
			t.buyCounter.Add(1)
		case common.TradeActionSell:
			t.sellCounter.Add(1)
		}
		handler(ctx, trade)
	}
}

func (t *Telemetry) Snapshots() int64 { return t.snapshotEventCounter.Load() }
func (t *Telemetry) Skips() int64     { return t.skipEventCounter.Load() }
func (t *Telemetry) Trades() int64    { return t.tradeEventCounter.Load() }

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("snapshot_events", t.snapshotEventCounter.Load()),
		zap.Int64("skip_events", t.skipEventCounter.Load()),
		zap.Int64("trade_events", t.tradeEventCounter.Load()),
		zap.Int64("buys", t.buyCounter.Load()),
		zap.Int64("sells", t.sellCounter.Load()))
}
