package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/internal/cfg"
	"github.com/peter-kozarec/rebalancer/internal/dbg"
	"github.com/peter-kozarec/rebalancer/pkg/data/duckdb"
	"github.com/peter-kozarec/rebalancer/pkg/datasource/synthetic"
	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/middleware"
	"github.com/peter-kozarec/rebalancer/pkg/simulation"
	"github.com/peter-kozarec/rebalancer/pkg/utility"
)

var syntheticOrigin = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

type options struct {
	configPath string
	dataDir    string
	workers    int
	synthetic  bool
	cache      bool
	seed       int64
	logLevel   string
	dev        bool
	monitor    []string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "rebalancer",
		Short:         "Periodic rebalancing portfolio backtester",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := dbg.NewLogger(opts.logLevel, opts.dev)
			if err != nil {
				return err
			}
			opts.logger = logger.With(zap.Stringer("process_id", utility.ProcessID()))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	addGlobalFlags(root.PersistentFlags(), opts)

	root.AddCommand(
		newRunCmd(opts),
		newSweepCmd(opts),
		newCacheCmd(opts),
	)
	return root
}

func addGlobalFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVar(&opts.dataDir, "data-dir", "data", "directory of the Parquet price cache")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&opts.dev, "dev", false, "human readable console logging")
}

func addBacktestFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML run configuration")
	fs.IntVar(&opts.workers, "workers", 4, "concurrent data loads and sweep runs")
	fs.BoolVar(&opts.synthetic, "synthetic", false, "generate prices instead of reading the cache")
	fs.BoolVar(&opts.cache, "cache-synthetic", false, "persist generated prices into the cache")
	fs.Int64Var(&opts.seed, "seed", 1, "seed of the synthetic price generator")
	fs.StringSliceVar(&opts.monitor, "monitor", nil, "events to log: snapshots, skips, trades, all")
}

// load reads the run configuration and warns about reserved keys.
func (o *options) load() (cfg.File, simulation.Configuration, error) {
	if o.configPath == "" {
		return cfg.File{}, simulation.Configuration{}, errors.New("--config is required")
	}

	file, err := cfg.Load(o.configPath)
	if err != nil {
		return cfg.File{}, simulation.Configuration{}, err
	}

	c, err := file.Configuration()
	if err != nil {
		return cfg.File{}, simulation.Configuration{}, fmt.Errorf("%w: %w", simulation.ErrConfiguration, err)
	}

	if file.HasStopLoss() {
		o.logger.Warn("stop_loss is not implemented and will be ignored")
	}
	return file, c, nil
}

// provider builds the price source. The returned closer releases the cache.
func (o *options) provider() (market.Provider, func(), error) {
	gen := synthetic.NewProvider(o.logger, o.seed, syntheticOrigin)
	if o.synthetic && !o.cache {
		return gen, func() {}, nil
	}

	storeOptions := []duckdb.Option{duckdb.WithWorkers(o.workers)}
	if o.synthetic {
		storeOptions = append(storeOptions, duckdb.WithUpstream(gen))
	}

	store, err := duckdb.NewStore(o.logger, o.dataDir, storeOptions...)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// telemetry wires event middleware onto the backtester handlers.
type telemetry struct {
	telemetry   *middleware.Telemetry
	performance *middleware.Performance
}

func (o *options) handlers() (simulation.Handlers, *telemetry, error) {
	flags, err := middleware.ParseMonitorFlags(o.monitor)
	if err != nil {
		return simulation.Handlers{}, nil, err
	}

	t := &telemetry{
		telemetry:   middleware.NewTelemetry(o.logger),
		performance: middleware.NewPerformance(o.logger),
	}
	monitor := middleware.NewMonitor(o.logger, flags)

	return simulation.Handlers{
		OnSnapshot: middleware.Chain(t.telemetry.WithSnapshot, monitor.WithSnapshot, t.performance.WithSnapshot)(middleware.NoopSnapshotHdl),
		OnSkip:     middleware.Chain(t.telemetry.WithSkip, monitor.WithSkip, t.performance.WithSkip)(middleware.NoopSkipHdl),
		OnTrade:    middleware.Chain(t.telemetry.WithTrade, monitor.WithTrade, t.performance.WithTrade)(middleware.NoopTradeHdl),
	}, t, nil
}

func (t *telemetry) print() {
	t.telemetry.PrintStatistics()
	t.performance.PrintStatistics(t.telemetry)
}
