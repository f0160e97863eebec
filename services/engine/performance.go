package engine

import (
	"math"

	"github.com/google/uuid"
)

// PerformanceReport reduces a simulation run to scalar metrics plus the trade
// list. Zero trades is a valid outcome, reported as-is.
type PerformanceReport struct {
	RunID    string `json:"run_id"`
	Strategy string `json:"strategy,omitempty"`

	FinalPortfolioValue float64 `json:"final_portfolio_value"`
	MarketBuyHoldValue  float64 `json:"market_buy_hold_value"`
	StrategyReturnPct   float64 `json:"strategy_return_pct"`
	MarketReturnPct     float64 `json:"market_return_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`

	NumTrades int     `json:"num_trades"`
	Trades    []Trade `json:"trades"`
}

// Analyze computes the performance summary for a simulation result and a
// buy-and-hold benchmark over the same window.
func Analyze(res *SimResult) *PerformanceReport {
	initial, _ := res.Config.InitialCapital.Float64()

	equity := make([]float64, len(res.Equity))
	for i, v := range res.Equity {
		equity[i], _ = v.Float64()
	}
	final := equity[len(equity)-1]

	firstClose := res.Window.Bars[0].Close
	lastClose := res.Window.Bars[res.Window.Len()-1].Close
	marketFinal := initial
	if firstClose != 0 {
		marketFinal = lastClose / firstClose * initial
	}

	return &PerformanceReport{
		RunID:               uuid.NewString(),
		FinalPortfolioValue: final,
		MarketBuyHoldValue:  marketFinal,
		StrategyReturnPct:   (final - initial) / initial * 100,
		MarketReturnPct:     (marketFinal - initial) / initial * 100,
		SharpeRatio:         AnnualizedSharpe(equity),
		MaxDrawdownPct:      MaxDrawdownPct(equity),
		NumTrades:           len(res.Trades),
		Trades:              res.Trades,
	}
}

// AnnualizedSharpe is mean/stdev of daily equity returns scaled by sqrt(252),
// 0 when volatility is zero. The sample (n-1) deviation is used.
func AnnualizedSharpe(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	returns := make([]float64, len(equity))
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns[i] = equity[i]/equity[i-1] - 1
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	ss := 0.0
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

// MaxDrawdownPct is the largest peak-to-trough decline as a positive percent
// of the running peak.
func MaxDrawdownPct(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}
