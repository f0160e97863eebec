package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func flatSignals(n, v int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSimulateNoTriggerPreservesCapital(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	s := mkSeries(t, closes)
	f := ComputeIndicators(s, IndicatorConfig{})

	res, err := Simulate(f, flatSignals(30, 0), SimulatorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(res.Trades))
	}
	if len(res.Equity) != 31 {
		t.Fatalf("equity length = %d, want bars+1", len(res.Equity))
	}
	initial := decimal.NewFromInt(100000)
	for i, v := range res.Equity {
		if !v.Equal(initial) {
			t.Fatalf("equity[%d] = %s, want untouched capital", i, v)
		}
	}
}

func TestSimulateFullEquityFallbackWithoutATR(t *testing.T) {
	// Zero-range bars: ATR is 0 everywhere, so sizing must fall back to
	// deploying all available cash at the next open.
	bars := make([]Bar, 30)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = Bar{Date: day.AddDate(0, 0, i), Open: 100, High: 100, Low: 100, Close: 100, Volume: 1000}
	}
	s, err := NewSeries(bars)
	if err != nil {
		t.Fatal(err)
	}
	f := ComputeIndicators(s, IndicatorConfig{})

	res, err := Simulate(f, flatSignals(30, 1), SimulatorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 0 {
		t.Fatal("position never exits on a constant long signal")
	}
	final, _ := res.Equity[len(res.Equity)-1].Float64()
	// Full deployment: 100000/(100*1.002) shares at 100, entry fees paid once.
	want := 100000.0 / 1.002
	if final < want-1 || final > want+1 {
		t.Fatalf("final equity = %.2f, want ~%.2f (full deployment minus fees)", final, want)
	}
}

func TestSimulateSignalExit(t *testing.T) {
	closes := []float64{100, 100, 110, 110, 110}
	s := mkSeries(t, closes)
	f := ComputeIndicators(s, IndicatorConfig{})

	// Buy decided on bar 0, filled at bar 1 open; sell decided on bar 2,
	// filled at bar 3 open.
	signals := []int{1, 1, 0, 0, 0}
	res, err := Simulate(f, signals, SimulatorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.Reason != ExitSignal {
		t.Fatalf("reason = %q, want %q", tr.Reason, ExitSignal)
	}
	if !tr.ExitDate.After(tr.EntryDate) {
		t.Fatal("exit date must be strictly after entry date")
	}
	if !tr.EntryPrice.Equal(decimal.NewFromInt(100)) || !tr.ExitPrice.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("entry/exit = %s/%s, want 100/110", tr.EntryPrice, tr.ExitPrice)
	}
	if !tr.PnlPct.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("pnl = %s, want 10", tr.PnlPct)
	}
	if tr.Result != "Win" {
		t.Fatalf("result = %q, want Win", tr.Result)
	}
}

func TestSimulateGapStop(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	s := mkSeries(t, closes) // high 101, low 99 -> ATR 2 once warmed
	s.Bars[16].Open = 95     // gaps through any trailing stop
	f := ComputeIndicators(s, IndicatorConfig{})

	signals := make([]int, 20)
	for i := 14; i < 20; i++ {
		signals[i] = 1
	}
	res, err := Simulate(f, signals, SimulatorConfig{ATRMultiplier: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) == 0 {
		t.Fatal("expected a stop-out")
	}
	tr := res.Trades[0]
	if tr.Reason != ExitStopGap {
		t.Fatalf("reason = %q, want %q", tr.Reason, ExitStopGap)
	}
	if !tr.ExitPrice.Equal(decimal.NewFromInt(95)) {
		t.Fatalf("gap exit fills at the realized open, got %s", tr.ExitPrice)
	}
	if !tr.PnlPct.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("pnl = %s, want -5", tr.PnlPct)
	}
	if tr.Result != "Loss" {
		t.Fatalf("result = %q, want Loss", tr.Result)
	}
}

func TestSimulateIntradayStop(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	s := mkSeries(t, closes)
	s.Bars[16].Low = 98 // breaches the stop intraday without gapping
	f := ComputeIndicators(s, IndicatorConfig{})

	signals := make([]int, 20)
	for i := 14; i < 20; i++ {
		signals[i] = 1
	}
	res, err := Simulate(f, signals, SimulatorConfig{ATRMultiplier: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) == 0 {
		t.Fatal("expected a stop-out")
	}
	tr := res.Trades[0]
	if tr.Reason != ExitStopIntraday {
		t.Fatalf("reason = %q, want %q", tr.Reason, ExitStopIntraday)
	}
	// Stop price: trailing high 101 minus 1*ATR(2) = 99.
	if !tr.ExitPrice.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("intraday exit fills at the stop price, got %s", tr.ExitPrice)
	}
}

func TestSimulateSingleOpenPosition(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	s := mkSeries(t, closes)
	f := ComputeIndicators(s, IndicatorConfig{})

	signals := make([]int, 40)
	for i := range signals {
		if (i/5)%2 == 0 {
			signals[i] = 1
		}
	}
	res, err := Simulate(f, signals, SimulatorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	for i, tr := range res.Trades {
		if !tr.ExitDate.After(tr.EntryDate) {
			t.Fatalf("trade %d: exit not after entry", i)
		}
		if i > 0 && res.Trades[i-1].ExitDate.After(tr.EntryDate) {
			t.Fatalf("trade %d overlaps previous trade", i)
		}
	}
}

func TestSimulateWindowErrors(t *testing.T) {
	s := mkSeries(t, []float64{100, 101, 102})
	f := ComputeIndicators(s, IndicatorConfig{})

	_, err := Simulate(f, flatSignals(3, 0), SimulatorConfig{
		StartDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrEmptyRange) {
		t.Fatalf("err = %v, want ErrEmptyRange", err)
	}

	_, err = Simulate(f, flatSignals(3, 0), SimulatorConfig{
		StartDate: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}
