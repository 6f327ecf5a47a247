package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/peter-kozarec/rebalancer/pkg/data/duckdb"
)

func newCacheCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the Parquet price cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cached tickers with their date range and size",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(opts, func(store *duckdb.Store) error {
					infos, err := store.Info(cmd.Context())
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "TICKER\tROWS\tSTART\tEND\tSIZE_MB")
					for _, info := range infos {
						_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.2f\n",
							info.Ticker,
							info.Rows,
							info.First.Format(time.DateOnly),
							info.Last.Format(time.DateOnly),
							float64(info.Size)/(1<<20))
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "clear [ticker]",
			Short: "Remove one cached ticker, or all of them",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(opts, func(store *duckdb.Store) error {
					if len(args) == 1 {
						err := store.Clear(args[0])
						if errors.Is(err, duckdb.ErrNotCached) {
							_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is not cached\n", args[0])
							return nil
						}
						return err
					}

					n, err := store.ClearAll()
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d tickers\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "import ticker file.csv",
			Short:   "Merge daily OHLCV rows from a CSV file into the cache",
			Example: `  rebalancer cache import AAPL downloads/AAPL.csv`,
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(opts, func(store *duckdb.Store) error {
					n, err := store.Import(cmd.Context(), args[0], args[1])
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows for %s\n", n, args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func withStore(opts *options, fn func(*duckdb.Store) error) error {
	store, err := duckdb.NewStore(opts.logger, opts.dataDir)
	if err != nil {
		return err
	}
	defer func(store *duckdb.Store) {
		_ = store.Close()
	}(store)

	return fn(store)
}
