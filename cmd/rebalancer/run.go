package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/simulation"
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single backtest",
		Example: `  rebalancer run --config run.yaml
  rebalancer run --config run.yaml --synthetic --seed 7 --monitor trades`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, c, err := opts.load()
			if err != nil {
				return err
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

			result, err := backtester.Run(cmd.Context(), c)
			if err != nil {
				return err
			}

			result.PrintSummary(opts.logger)
			for _, skip := range result.Skipped {
				opts.logger.Debug("skipped rebalance",
					zap.Int("iteration", skip.Iteration),
					zap.Time("scheduled", skip.Scheduled),
					zap.Error(skip.Reason))
			}
			return nil
		},
	}

	addBacktestFlags(cmd.Flags(), opts)
	return cmd
}
