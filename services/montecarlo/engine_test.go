package montecarlo

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

var testTradePnls = []float64{5.0, -1.9, 6.8, -1.8, 6.5, -2.6, 7.1, -1.7}

func testDailyReturns() []float64 {
	rets := make([]float64, 50)
	for i := range rets {
		rets[i] = 0.002 + 0.01*math.Sin(float64(i))
	}
	return rets
}

func TestNewEngineGeneratesSeed(t *testing.T) {
	if NewEngine(0).Seed() <= 0 {
		t.Fatal("seed 0 must be replaced with a generated seed")
	}
	if got := NewEngine(42).Seed(); got != 42 {
		t.Fatalf("seed = %d, want 42", got)
	}
}

func TestRunAnalysisNoSamples(t *testing.T) {
	_, err := NewEngine(1).RunAnalysis(SimulationConfig{})
	if !errors.Is(err, ErrNoSamples) {
		t.Fatalf("err = %v, want ErrNoSamples", err)
	}
}

func TestRunAnalysisDeterministicPerSeed(t *testing.T) {
	run := func() *Analysis {
		e := NewEngine(42)
		e.SetTradePnls(testTradePnls)
		e.SetDailyReturns(testDailyReturns())
		a, err := e.RunAnalysis(SimulationConfig{NumSimulations: 300})
		if err != nil {
			t.Fatal(err)
		}
		return a
	}
	a, b := run(), run()
	if !reflect.DeepEqual(a.Simulations, b.Simulations) {
		t.Fatal("same seed must reproduce every trial exactly")
	}
	if a.Percentile50 != b.Percentile50 || a.MeanReturn != b.MeanReturn {
		t.Fatal("same seed must reproduce the aggregate statistics")
	}
}

func TestRunAnalysisTrialCounts(t *testing.T) {
	e := NewEngine(7)
	e.SetTradePnls(testTradePnls)
	e.SetDailyReturns(testDailyReturns())
	a, err := e.RunAnalysis(SimulationConfig{NumSimulations: 1000})
	if err != nil {
		t.Fatal(err)
	}
	// 333 shuffle + 333 permutation + 334 bootstrap.
	if a.NumTrials != 1000 {
		t.Fatalf("trials = %d, want exactly 1000", a.NumTrials)
	}
	if len(a.Simulations) != 1000 {
		t.Fatalf("stored trials = %d, want 1000", len(a.Simulations))
	}
}

func TestRunAnalysisPermutationOnly(t *testing.T) {
	days := testDailyReturns()
	e := NewEngine(9)
	e.SetDailyReturns(days)
	a, err := e.RunAnalysis(SimulationConfig{NumSimulations: 90})
	if err != nil {
		t.Fatal(err)
	}
	// Without trades only the permutation bucket runs.
	if a.NumTrials != 30 {
		t.Fatalf("trials = %d, want 90/3", a.NumTrials)
	}
	for i, s := range a.Simulations {
		if s.WinRate != 50.0 {
			t.Fatalf("trial %d win rate = %v, want the 50%% random-walk pin", i, s.WinRate)
		}
		if s.NumTrades != len(days)/20 {
			t.Fatalf("trial %d trades = %d, want %d", i, s.NumTrades, len(days)/20)
		}
	}
}

func TestRunAnalysisFullScenario(t *testing.T) {
	e := NewEngine(42)
	e.SetTradePnls(testTradePnls)
	e.SetDailyReturns(testDailyReturns())
	a, err := e.RunAnalysis(SimulationConfig{NumSimulations: 1000})
	if err != nil {
		t.Fatal(err)
	}

	if a.SeedUsed != 42 {
		t.Fatalf("seed used = %d, want 42", a.SeedUsed)
	}
	if a.AnalysisID == "" {
		t.Fatal("expected an analysis id")
	}

	sum := 0
	for _, c := range a.ReturnDistribution {
		sum += c
	}
	if len(a.ReturnDistribution) != 20 || sum != 1000 {
		t.Fatalf("histogram bins=%d sum=%d, want 20 bins summing to 1000",
			len(a.ReturnDistribution), sum)
	}
	if a.DistributionMin >= a.DistributionMax {
		t.Fatalf("distribution bounds [%v, %v] not ordered", a.DistributionMin, a.DistributionMax)
	}

	ps := []float64{a.Percentile5, a.Percentile25, a.Percentile50, a.Percentile75, a.Percentile95}
	for i := 1; i < len(ps); i++ {
		if ps[i] < ps[i-1] {
			t.Fatalf("percentiles not monotone: %v", ps)
		}
	}
	if a.CILower95 != a.Percentile5 || a.CIUpper95 != a.Percentile95 {
		t.Fatal("confidence interval must span the 5th to 95th percentile")
	}

	// The trade set compounds to ~+18% in any order and the daily returns have
	// a positive drift, so the bulk of the distribution sits above zero.
	if a.Percentile50 <= 0 {
		t.Fatalf("median return = %v, want > 0", a.Percentile50)
	}
	if a.MeanReturn <= 0 {
		t.Fatalf("mean return = %v, want > 0", a.MeanReturn)
	}
	if a.CVaR95 > a.VaR95 {
		t.Fatalf("CVaR %v exceeds VaR %v", a.CVaR95, a.VaR95)
	}
	if a.ProbRuin < 0 || a.ProbRuin > 100 {
		t.Fatalf("probability of ruin = %v, want a percentage", a.ProbRuin)
	}

	if len(a.SimulationSample) > 100 {
		t.Fatalf("sampled trials = %d, want at most 100", len(a.SimulationSample))
	}
	for i, s := range a.SimulationSample {
		if len(s.EquityCurve) > 100 {
			t.Fatalf("sample %d curve length = %d, want at most 100", i, len(s.EquityCurve))
		}
	}
}

func TestReplayTradesCompounding(t *testing.T) {
	e := NewEngine(1)
	e.SetTradePnls([]float64{10, -10})
	res := e.replayTrades([]int{0, 1}, SimulationConfig{}.withDefaults())
	// 100000 * 1.1 * 0.9 = 99000.
	if math.Abs(res.FinalValue-99000) > 1e-6 {
		t.Fatalf("final = %v, want 99000", res.FinalValue)
	}
	if math.Abs(res.TotalReturnPct+1) > 1e-9 {
		t.Fatalf("return = %v, want -1", res.TotalReturnPct)
	}
	if res.WinRate != 50 || res.NumTrades != 2 {
		t.Fatalf("win rate %v trades %d, want 50 and 2", res.WinRate, res.NumTrades)
	}
	// Peak 110000 down to 99000.
	if math.Abs(res.MaxDrawdownPct-10) > 1e-9 {
		t.Fatalf("drawdown = %v, want 10", res.MaxDrawdownPct)
	}
}
