package middleware

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/simulation"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorSnapshots
	MonitorSkips
	MonitorTrades
)

var monitorFlagNames = map[string]MonitorFlags{
	"none":      MonitorNone,
	"all":       MonitorAll,
	"snapshots": MonitorSnapshots,
	"skips":     MonitorSkips,
	"trades":    MonitorTrades,
}

// ParseMonitorFlags combines flag names such as "snapshots" or "trades".
func ParseMonitorFlags(names []string) (MonitorFlags, error) {
	var flags MonitorFlags
	for _, name := range names {
		flag, ok := monitorFlagNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown monitor flag %q", name)
		}
		flags |= flag
	}
	if flags == 0 {
		flags = MonitorNone
	}
	return flags, nil
}

type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithSnapshot(handler simulation.SnapshotHandler) simulation.SnapshotHandler {
	return func(ctx context.Context, snapshot common.Snapshot) {
		if m.enabled(MonitorSnapshots) {
			m.logger.Info("snapshot",
				zap.Time("date", snapshot.Date),
				zap.String("portfolio_value", snapshot.PortfolioValue.Rescale(2).String()),
				zap.String("cash", snapshot.Cash.Rescale(2).String()),
				zap.Int("num_positions", snapshot.NumPositions),
				zap.Strings("selected", snapshot.SelectedTickers))
		}
		handler(ctx, snapshot)
	}
}

func (m *Monitor) WithSkip(handler simulation.SkipHandler) simulation.SkipHandler {
	return func(ctx context.Context, skip simulation.Skip) {
		if m.enabled(MonitorSkips) {
			m.logger.Info("skip",
				zap.Int("iteration", skip.Iteration),
				zap.Time("scheduled", skip.Scheduled),
				zap.Error(skip.Reason))
		}
		handler(ctx, skip)
	}
}

func (m *Monitor) WithTrade(handler simulation.TradeHandler) simulation.TradeHandler {
	return func(ctx context.Context, trade common.Trade) {
		if m.enabled(MonitorTrades) {
			m.logger.Info("trade",
				zap.Time("date", trade.Date),
				zap.String("ticker", trade.Ticker),
				zap.String("action", string(trade.Action)),
				zap.String("shares", trade.Shares.String()),
				zap.String("price", trade.Price.String()),
				zap.String("commission", trade.Commission.Rescale(2).String()))
		}
		handler(ctx, trade)
	}
}
