package middleware

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/simulation"
)

type Performance struct {
	logger *zap.Logger

	totalSnapshotHandlerDur atomic.Int64
	totalSkipHandlerDur     atomic.Int64
	totalTradeHandlerDur    atomic.Int64
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
	}
}

func (p *Performance) WithSnapshot(handler simulation.SnapshotHandler) simulation.SnapshotHandler {
	return func(ctx context.Context, snapshot common.Snapshot) {
		startTime := time.Now()
		handler(ctx, snapshot)
		p.totalSnapshotHandlerDur.Add(int64(time.Since(startTime)))
	}
}

func (p *Performance) WithSkip(handler simulation.SkipHandler) simulation.SkipHandler {
	return func(ctx context.Context, skip simulation.Skip) {
		startTime := time.Now()
		handler(ctx, skip)
		p.totalSkipHandlerDur.Add(int64(time.Since(startTime)))
	}
}

func (p *Performance) WithTrade(handler simulation.TradeHandler) simulation.TradeHandler {
	return func(ctx context.Context, trade common.Trade) {
		startTime := time.Now()
		handler(ctx, trade)
		p.totalTradeHandlerDur.Add(int64(time.Since(startTime)))
	}
}

func (p *Performance) PrintStatistics(t *Telemetry) {
	if t == nil {
		p.logger.Warn("Telemetry is nil; cannot compute performance statistics")
		return
	}

	var fields []zap.Field
	fields = appendDurations(fields, "snapshot", time.Duration(p.totalSnapshotHandlerDur.Load()), t.Snapshots())
	fields = appendDurations(fields, "skip", time.Duration(p.totalSkipHandlerDur.Load()), t.Skips())
	fields = appendDurations(fields, "trade", time.Duration(p.totalTradeHandlerDur.Load()), t.Trades())

	p.logger.Info("performance statistics", fields...)
}

func appendDurations(fields []zap.Field, name string, total time.Duration, count int64) []zap.Field {
	if count <= 0 {
		return fields
	}
	avg := total / time.Duration(count)
	if avg <= 0 {
		return fields
	}
	return append(fields,
		zap.Duration(name+"_avg_duration", avg),
		zap.Duration(name+"_total_duration", total))
}
