package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/metrics"
	"github.com/peter-kozarec/rebalancer/pkg/simulation"
)

func newSweepCmd(opts *options) *cobra.Command {
	var grid simulation.Grid

	cmd := &cobra.Command{
		Use:     "sweep",
		Short:   "Run a backtest for every holding period and portfolio size",
		Example: `  rebalancer sweep --config run.yaml --holding-periods 15,30,60 --n-assets 5,10`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, c, err := opts.load()
			if err != nil {
				return err
			}

			// flags take precedence over the sweep section of the file
			fileGrid := file.Grid()
			if !cmd.Flags().Changed("holding-periods") {
				grid.HoldingPeriods = fileGrid.HoldingPeriods
			}
			if !cmd.Flags().Changed("n-assets") {
				grid.NAssets = fileGrid.NAssets
			}

			provider, closeProvider, err := opts.provider()
			if err != nil {
				return err
			}
			defer closeProvider()

			handlers, t, err := opts.handlers()
			if err != nil {
				return err
			}
			defer t.print()

			backtester := simulation.NewBacktester(opts.logger, provider, simulation.WithHandlers(handlers))

			results, err := backtester.Sweep(cmd.Context(), c, grid, opts.workers)
			if err != nil {
				return err
			}

			var reports []metrics.NamedReport
			for _, res := range results {
				if res.Err != nil {
					opts.logger.Warn("sweep cell failed",
						zap.Int("holding_period", res.HoldingPeriod),
						zap.Int("n_assets", res.NAssets),
						zap.Error(res.Err))
					continue
				}
				reports = append(reports, metrics.NamedReport{
					Name:   cellName(res),
					Report: res.Result.Metrics,
				})
			}

			for _, row := range metrics.Compare(reports) {
				opts.logger.Info("sweep result",
					zap.String("cell", row.Name),
					zap.String("final_value", row.FinalValue.Rescale(2).String()),
					zap.String("total_return_pct", row.TotalReturnPct.Rescale(2).String()),
					zap.String("tir_pct", row.TIRPct.Rescale(2).String()),
					zap.String("sharpe", row.Sharpe.Rescale(3).String()),
					zap.String("max_drawdown_pct", row.MaxDrawdownPct.Rescale(2).String()),
					zap.String("volatility_pct", row.VolatilityPct.Rescale(2).String()),
					zap.Int("rebalances", row.Rebalances))
			}
			return nil
		},
	}

	addBacktestFlags(cmd.Flags(), opts)
	cmd.Flags().IntSliceVar(&grid.HoldingPeriods, "holding-periods", nil, "holding periods in days")
	cmd.Flags().IntSliceVar(&grid.NAssets, "n-assets", nil, "portfolio sizes")
	return cmd
}

func cellName(res simulation.SweepResult) string {
	return fmt.Sprintf("hp=%d n=%d", res.HoldingPeriod, res.NAssets)
}
