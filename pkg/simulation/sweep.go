package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Grid struct {
	HoldingPeriods []int
	NAssets        []int
}

func (g Grid) cells(base Configuration) []Configuration {
	holdingPeriods := dedupe(g.HoldingPeriods, base.HoldingPeriod)
	sizes := dedupe(g.NAssets, base.NAssets)

	cells := make([]Configuration, 0, len(holdingPeriods)*len(sizes))
	for _, hp := range holdingPeriods {
		for _, n := range sizes {
			cfg := base
			cfg.HoldingPeriod = hp
			cfg.NAssets = n
			cells = append(cells, cfg)
		}
	}
	return cells
}

// SweepResult holds the outcome of one grid cell. Err is set when the cell
// failed; other cells are unaffected.
type SweepResult struct {
	HoldingPeriod int
	NAssets       int
	Result        *Result
	Err           error
}

// Sweep runs base over every (holding period, n) combination of grid. The
// panel is fetched once and shared read-only; each cell runs with its own
// ledger on at most workers goroutines, so the scorer and handlers must be
// safe for concurrent use. Results are ordered by holding period, then n.
func (b *Backtester) Sweep(ctx context.Context, base Configuration, grid Grid, workers int) ([]SweepResult, error) {
	cells := grid.cells(base)
	for _, cfg := range cells {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("holding period %d, n %d: %w", cfg.HoldingPeriod, cfg.NAssets, err)
		}
	}

	panel, err := b.fetch(ctx, base.Tickers, base.dataStart(), base.endDay())
	if err != nil {
		return nil, err
	}

	if workers < 1 {
		workers = 1
	}

	b.logger.Info("starting parameter sweep", zap.Int("cells", len(cells)), zap.Int("workers", workers))

	results := make([]SweepResult, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for idx, cfg := range cells {
		g.Go(func() error {
			res, err := b.RunOnPanel(gctx, cfg, panel)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if err != nil {
				b.logger.Warn("sweep cell failed",
					zap.Int("holding_period", cfg.HoldingPeriod),
					zap.Int("n_assets", cfg.NAssets),
					zap.Error(err))
			}
			results[idx] = SweepResult{HoldingPeriod: cfg.HoldingPeriod, NAssets: cfg.NAssets, Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func dedupe(values []int, fallback int) []int {
	if len(values) == 0 {
		return []int{fallback}
	}

	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
