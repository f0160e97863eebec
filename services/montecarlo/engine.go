//! Monte Carlo resampling engine.
//!
//! Regenerates alternate equity-curve outcomes from realized trades and daily
//! returns under three randomization schemes. All random orderings come from
//! one seeded stream drawn sequentially in a fixed method order, so a given
//! seed reproduces every trial bit for bit; only the replay and per-trial
//! statistics run in parallel.

package montecarlo

import (
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"stratlab/services/engine"
)

// ErrNoSamples means there is nothing to resample: no realized trades and no
// daily returns were supplied.
var ErrNoSamples = errors.New("no resampled trials: need trades or daily returns")

// SimulationConfig is immutable for a run. Zero values fall back to defaults;
// Seed 0 means "generate a fresh seed and record it".
type SimulationConfig struct {
	NumSimulations int     `json:"num_simulations"`
	Seed           int64   `json:"seed"`
	InitialCapital float64 `json:"initial_capital"`
	RiskPerTrade   float64 `json:"risk_per_trade"`
	ATRMultiplier  float64 `json:"atr_multiplier"`
	TaxRate        float64 `json:"tax_rate"`
}

func (c SimulationConfig) withDefaults() SimulationConfig {
	if c.NumSimulations <= 0 {
		c.NumSimulations = 1000
	}
	if c.InitialCapital <= 0 {
		c.InitialCapital = 100000
	}
	if c.RiskPerTrade <= 0 {
		c.RiskPerTrade = 0.02
	}
	if c.ATRMultiplier == 0 {
		c.ATRMultiplier = 3.0
	}
	if c.TaxRate <= 0 {
		c.TaxRate = 0.002
	}
	return c
}

// SimulationResult is one Monte Carlo trial.
type SimulationResult struct {
	FinalValue     float64   `json:"final_value"`
	TotalReturnPct float64   `json:"total_return_pct"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	NumTrades      int       `json:"num_trades"`
	WinRate        float64   `json:"win_rate"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	EquityCurve    []float64 `json:"equity_curve,omitempty"`
}

// Method identifies a resampling scheme.
type Method int

const (
	PositionShuffle Method = iota
	ReturnPermutation
	Bootstrap
)

func (m Method) String() string {
	switch m {
	case PositionShuffle:
		return "position_shuffle"
	case ReturnPermutation:
		return "return_permutation"
	case Bootstrap:
		return "bootstrap"
	}
	return "unknown"
}

// Engine owns the seeded random stream and the source data for one analysis.
type Engine struct {
	seed      int64
	rng       *rand.Rand
	tradePnls []float64 // fractional per-trade returns
	dailyRets []float64 // fractional close-to-close returns
}

// NewEngine seeds the engine. A seed of 0 (or negative) draws a fresh
// time-derived seed, retrievable via Seed() so the run can be replayed.
func NewEngine(seed int64) *Engine {
	if seed <= 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

func (e *Engine) Seed() int64 { return e.seed }

// SetTrades loads realized trades from a backtest.
func (e *Engine) SetTrades(trades []engine.Trade) {
	pnls := make([]float64, len(trades))
	for i, t := range trades {
		pct, _ := t.PnlPct.Float64()
		pnls[i] = pct / 100.0
	}
	e.tradePnls = pnls
}

// SetTradePnls loads per-trade returns given in percent.
func (e *Engine) SetTradePnls(pnlPcts []float64) {
	pnls := make([]float64, len(pnlPcts))
	for i, p := range pnlPcts {
		pnls[i] = p / 100.0
	}
	e.tradePnls = pnls
}

// SetDailyReturns loads fractional daily returns of the underlying series.
func (e *Engine) SetDailyReturns(rets []float64) {
	e.dailyRets = append([]float64(nil), rets...)
}

// trial is one pre-drawn randomization: the method plus the source indices to
// replay, fixed before any parallel work starts.
type trial struct {
	method Method
	order  []int
}

// RunAnalysis executes the full three-method analysis. Shuffle and
// permutation run NumSimulations/3 trials each; bootstrap absorbs the
// integer-division remainder so the combined trial count is exactly
// NumSimulations (methods with no source data contribute nothing).
func (e *Engine) RunAnalysis(cfg SimulationConfig) (*Analysis, error) {
	cfg = cfg.withDefaults()

	perMethod := cfg.NumSimulations / 3
	bootstrapN := cfg.NumSimulations - 2*perMethod

	// Draw phase: single-threaded, fixed order shuffle -> permutation ->
	// bootstrap. This is the only consumer of the random stream.
	var trials []trial
	if len(e.tradePnls) > 0 {
		for t := 0; t < perMethod; t++ {
			trials = append(trials, trial{PositionShuffle, e.rng.Perm(len(e.tradePnls))})
		}
	}
	if len(e.dailyRets) > 0 {
		for t := 0; t < perMethod; t++ {
			trials = append(trials, trial{ReturnPermutation, e.rng.Perm(len(e.dailyRets))})
		}
	}
	if len(e.tradePnls) > 0 {
		for t := 0; t < bootstrapN; t++ {
			order := make([]int, len(e.tradePnls))
			for i := range order {
				order[i] = e.rng.Intn(len(e.tradePnls))
			}
			trials = append(trials, trial{Bootstrap, order})
		}
	}
	if len(trials) == 0 {
		return nil, ErrNoSamples
	}

	// Replay phase: embarrassingly parallel, each worker writes its own
	// result slot.
	results := make([]SimulationResult, len(trials))
	workers := runtime.GOMAXPROCS(0)
	if workers > len(trials) {
		workers = len(trials)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(trials); i += workers {
				results[i] = e.runTrial(trials[i], cfg)
			}
		}(w)
	}
	wg.Wait()

	return buildAnalysis(results, e.seed, cfg)
}

func (e *Engine) runTrial(t trial, cfg SimulationConfig) SimulationResult {
	switch t.method {
	case ReturnPermutation:
		return e.replayReturns(t.order, cfg)
	default:
		return e.replayTrades(t.order, cfg)
	}
}

// replayTrades compounds a reordered (shuffle) or resampled (bootstrap)
// trade sequence from the initial capital.
func (e *Engine) replayTrades(order []int, cfg SimulationConfig) SimulationResult {
	equity := make([]float64, len(order)+1)
	equity[0] = cfg.InitialCapital
	wins := 0
	for i, idx := range order {
		pnl := e.tradePnls[idx]
		equity[i+1] = equity[i] * (1 + pnl)
		if pnl > 0 {
			wins++
		}
	}
	final := equity[len(equity)-1]
	return SimulationResult{
		FinalValue:     final,
		TotalReturnPct: (final - cfg.InitialCapital) / cfg.InitialCapital * 100,
		MaxDrawdownPct: engine.MaxDrawdownPct(equity),
		NumTrades:      len(order),
		WinRate:        float64(wins) / float64(len(order)) * 100,
		SharpeRatio:    engine.AnnualizedSharpe(equity),
		EquityCurve:    equity,
	}
}

// replayReturns compounds a permuted daily-return sequence. With no discrete
// trades the win rate is pinned at the random-walk 50% and the trade count is
// a rough one-per-20-days estimate.
func (e *Engine) replayReturns(order []int, cfg SimulationConfig) SimulationResult {
	numDays := len(order)
	equity := make([]float64, numDays+1)
	equity[0] = cfg.InitialCapital
	for i, idx := range order {
		equity[i+1] = equity[i] * (1 + e.dailyRets[idx])
	}
	final := equity[len(equity)-1]

	res := SimulationResult{
		FinalValue:     final,
		TotalReturnPct: (final - cfg.InitialCapital) / cfg.InitialCapital * 100,
		MaxDrawdownPct: engine.MaxDrawdownPct(equity),
		NumTrades:      numDays / 20,
		WinRate:        50.0,
		SharpeRatio:    engine.AnnualizedSharpe(equity),
	}
	// Long curves are stored down-sampled; the metrics above already used
	// every point.
	stride := numDays / 100
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(equity); i += stride {
		res.EquityCurve = append(res.EquityCurve, equity[i])
	}
	return res
}
