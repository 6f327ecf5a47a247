package middleware

import (
	"context"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/simulation"
)

//goland:noinspection ALL
var (
	NoopSnapshotHdl simulation.SnapshotHandler = func(context.Context, common.Snapshot) {}
	NoopSkipHdl     simulation.SkipHandler     = func(context.Context, simulation.Skip) {}
	NoopTradeHdl    simulation.TradeHandler    = func(context.Context, common.Trade) {}
)
