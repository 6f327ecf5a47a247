package metrics

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

type Report struct {
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital fixed.Point
	FinalValue     fixed.Point
	TotalReturn    fixed.Point
	TIR            fixed.Point
	Sharpe         fixed.Point
	Sortino        fixed.Point
	MaxDrawdown    fixed.Point
	Volatility     fixed.Point
	NumRebalances  int
	Days           int
	Years          fixed.Point

	// Saturated reports that an annualized figure hit its numeric cap.
	Saturated bool
}

// Map returns the statistics keyed by their canonical names.
func (report Report) Map() map[string]any {
	return map[string]any{
		"final_value":    report.FinalValue,
		"total_return":   report.TotalReturn,
		"tir":            report.TIR,
		"sharpe":         report.Sharpe,
		"sortino":        report.Sortino,
		"max_drawdown":   report.MaxDrawdown,
		"volatility":     report.Volatility,
		"num_rebalances": report.NumRebalances,
		"days":           report.Days,
		"years":          report.Years,
	}
}

func (report Report) Print(logger *zap.Logger) {
	logger.Info("performance report",
		zap.Time("start_date", report.StartDate),
		zap.Time("end_date", report.EndDate),
		zap.String("initial_capital", report.InitialCapital.Rescale(2).String()),
		zap.String("final_value", report.FinalValue.Rescale(2).String()),
		zap.String("total_return", percent(report.TotalReturn)),
		zap.String("annualized_return", percent(report.TIR)),
	)

	logger.Info("risk metrics",
		zap.String("sharpe_ratio", report.Sharpe.Rescale(3).String()),
		zap.String("sortino_ratio", report.Sortino.Rescale(3).String()),
		zap.String("max_drawdown", percent(report.MaxDrawdown)),
		zap.String("annualized_volatility", percent(report.Volatility)),
		zap.Int("rebalances", report.NumRebalances),
		zap.Int("days", report.Days),
	)

	if report.Saturated {
		logger.Warn("annualized metrics capped", zap.String("limit", ratioLimit.String()))
	}
}

// Comparison is one row of a side-by-side strategy comparison. Ratios are in percent.
type Comparison struct {
	Name           string      `json:"name"`
	FinalValue     fixed.Point `json:"final_value"`
	TotalReturnPct fixed.Point `json:"total_return_pct"`
	TIRPct         fixed.Point `json:"tir_pct"`
	Sharpe         fixed.Point `json:"sharpe"`
	MaxDrawdownPct fixed.Point `json:"max_drawdown_pct"`
	VolatilityPct  fixed.Point `json:"volatility_pct"`
	Rebalances     int         `json:"rebalances"`
}

type NamedReport struct {
	Name   string
	Report Report
}

// Compare lays out reports as comparison rows in the given order. Unnamed
// reports are labeled by position.
func Compare(reports []NamedReport) []Comparison {
	rows := make([]Comparison, len(reports))
	for idx, nr := range reports {
		name := nr.Name
		if name == "" {
			name = fmt.Sprintf("Strategy %d", idx+1)
		}

		r := nr.Report
		rows[idx] = Comparison{
			Name:           name,
			FinalValue:     r.FinalValue,
			TotalReturnPct: r.TotalReturn.Mul(fixed.Hundred),
			TIRPct:         r.TIR.Mul(fixed.Hundred),
			Sharpe:         r.Sharpe,
			MaxDrawdownPct: r.MaxDrawdown.Mul(fixed.Hundred),
			VolatilityPct:  r.Volatility.Mul(fixed.Hundred),
			Rebalances:     r.NumRebalances,
		}
	}
	return rows
}

func percent(p fixed.Point) string {
	return fmt.Sprintf("%s%%", p.Mul(fixed.Hundred).Rescale(2).String())
}
