package montecarlo

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

const (
	histogramBins    = 20
	maxSampledTrials = 100
	maxSampledCurve  = 100
	ruinThresholdPct = -50.0
)

// Analysis aggregates every trial plus the statistical verdict. It is built
// once per run and read-only afterwards. Simulations holds the full trial
// set; SimulationSample is the transport-capped view that gets serialized.
type Analysis struct {
	AnalysisID       string             `json:"analysis_id"`
	Simulations      []SimulationResult `json:"-"`
	SimulationSample []SimulationResult `json:"simulations"`

	PValueVsRandom    float64 `json:"p_value_vs_random"`
	PValueVsBootstrap float64 `json:"p_value_vs_bootstrap"`

	Percentile5  float64 `json:"percentile_5"`
	Percentile25 float64 `json:"percentile_25"`
	Percentile50 float64 `json:"percentile_50"`
	Percentile75 float64 `json:"percentile_75"`
	Percentile95 float64 `json:"percentile_95"`

	CILower95 float64 `json:"ci_lower_95"`
	CIUpper95 float64 `json:"ci_upper_95"`

	OriginalReturn      float64 `json:"original_return"`
	OriginalSharpe      float64 `json:"original_sharpe"`
	OriginalMaxDrawdown float64 `json:"original_max_dd"`

	ReturnDistribution []int   `json:"return_distribution"`
	DistributionMin    float64 `json:"distribution_min"`
	DistributionMax    float64 `json:"distribution_max"`

	SeedUsed  int64            `json:"seed_used"`
	NumTrials int              `json:"num_trials"`
	Config    SimulationConfig `json:"config"`

	MeanReturn      float64 `json:"mean_return"`
	MeanSharpe      float64 `json:"mean_sharpe"`
	MeanMaxDrawdown float64 `json:"mean_max_drawdown"`

	Interpretation string `json:"interpretation"`
	RiskRating     string `json:"risk_rating"`

	VaR95    float64 `json:"var_95"`
	CVaR95   float64 `json:"cvar_95"`
	ProbRuin float64 `json:"probability_of_ruin"`
}

func buildAnalysis(sims []SimulationResult, seed int64, cfg SimulationConfig) (*Analysis, error) {
	if len(sims) == 0 {
		return nil, ErrNoSamples
	}

	returns := make([]float64, len(sims))
	meanSharpe, meanDD := 0.0, 0.0
	for i, s := range sims {
		returns[i] = s.TotalReturnPct
		meanSharpe += s.SharpeRatio
		meanDD += s.MaxDrawdownPct
	}
	meanSharpe /= float64(len(sims))
	meanDD /= float64(len(sims))

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	p5 := percentile(sorted, 5)
	p25 := percentile(sorted, 25)
	p50 := percentile(sorted, 50)
	p75 := percentile(sorted, 75)
	p95 := percentile(sorted, 95)

	meanReturn := 0.0
	for _, r := range returns {
		meanReturn += r
	}
	meanReturn /= float64(len(returns))

	// Tail risk: VaR is the 5th-percentile cutoff, CVaR the mean of the tail
	// at or beyond it.
	cvar := p5
	tailSum, tailN := 0.0, 0
	for _, r := range returns {
		if r <= p5 {
			tailSum += r
			tailN++
		}
	}
	if tailN > 0 {
		cvar = tailSum / float64(tailN)
	}
	ruined := 0
	for _, r := range returns {
		if r < ruinThresholdPct {
			ruined++
		}
	}

	hist, lo, hi := histogram(sorted, histogramBins)

	a := &Analysis{
		AnalysisID:         uuid.NewString(),
		Simulations:        sims,
		SimulationSample:   sampleTrials(sims),
		Percentile5:        p5,
		Percentile25:       p25,
		Percentile50:       p50,
		Percentile75:       p75,
		Percentile95:       p95,
		CILower95:          p5,
		CIUpper95:          p95,
		ReturnDistribution: hist,
		DistributionMin:    lo,
		DistributionMax:    hi,
		SeedUsed:           seed,
		NumTrials:          len(sims),
		Config:             cfg,
		MeanReturn:         meanReturn,
		MeanSharpe:         meanSharpe,
		MeanMaxDrawdown:    meanDD,
		VaR95:              p5,
		CVaR95:             cvar,
		ProbRuin:           float64(ruined) / float64(len(returns)) * 100,
	}
	return a, nil
}

// ApplyOriginal scores the real strategy against the trial distribution:
// p-value plus the interpretation ladder, first match from the top.
func (a *Analysis) ApplyOriginal(returnPct, sharpe, maxDrawdownPct float64) {
	beat := 0
	for _, s := range a.Simulations {
		if s.TotalReturnPct >= returnPct {
			beat++
		}
	}
	p := float64(beat) / float64(len(a.Simulations)) * 100

	a.OriginalReturn = returnPct
	a.OriginalSharpe = sharpe
	a.OriginalMaxDrawdown = maxDrawdownPct
	a.PValueVsRandom = p
	a.PValueVsBootstrap = p

	switch {
	case returnPct > a.Percentile95:
		a.Interpretation = "STRONG_SIGNAL: Strategy significantly outperforms random permutations (>95th percentile). Results are likely NOT due to luck."
		a.RiskRating = "GREEN"
	case returnPct > a.Percentile75:
		a.Interpretation = "MODERATE_SIGNAL: Strategy performs better than 75% of random permutations. Results suggest skill over luck."
		a.RiskRating = "GREEN"
	case returnPct > a.Percentile50:
		a.Interpretation = "WEAK_SIGNAL: Strategy performs above median but not exceptionally. Results may have some skill component."
		a.RiskRating = "AMBER"
	default:
		a.Interpretation = "NO_SIGNAL: Strategy does not outperform random permutations. Results likely due to luck."
		a.RiskRating = "RED"
	}
}

// sampleTrials caps the serialized trial list and each trial's stored curve.
func sampleTrials(sims []SimulationResult) []SimulationResult {
	n := len(sims)
	if n > maxSampledTrials {
		n = maxSampledTrials
	}
	out := make([]SimulationResult, n)
	copy(out, sims[:n])
	for i := range out {
		if len(out[i].EquityCurve) > maxSampledCurve {
			out[i].EquityCurve = out[i].EquityCurve[:maxSampledCurve]
		}
	}
	return out
}

// percentile computes the p-th percentile of sorted values with linear
// interpolation between ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// histogram bins sorted values into equal-width bins over [min, max]; the top
// edge is inclusive so the counts always sum to len(values).
func histogram(sorted []float64, bins int) ([]int, float64, float64) {
	lo := sorted[0]
	hi := sorted[len(sorted)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	counts := make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range sorted {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	return counts, lo, hi
}
