// Package strategies holds the strategy catalog and signal generation.
//
// Seven long/flat strategies evaluate buy and sell predicates over the
// derived indicator frame; discrete triggers are forward-filled into a
// persistent binary position state.
package strategies

import (
	"errors"
	"fmt"

	"stratlab/services/engine"
)

// ErrInvalidStrategy is returned when a strategy name is not in the catalog.
var ErrInvalidStrategy = errors.New("invalid strategy")

// Kind identifies one of the supported strategies.
type Kind int

const (
	GoldenCross Kind = iota
	RSI
	MACD
	Composite
	Momentum
	MeanReversion
	Breakout
)

var kindNames = map[Kind]string{
	GoldenCross:   "golden_cross",
	RSI:           "rsi",
	MACD:          "macd",
	Composite:     "composite",
	Momentum:      "momentum",
	MeanReversion: "mean_reversion",
	Breakout:      "breakout",
}

func (k Kind) String() string { return kindNames[k] }

// Strategy pairs buy and sell predicates evaluated per bar. Predicates see
// bar i and, via the frame, bar i-1 for crossover detection.
type Strategy struct {
	Kind Kind
	buy  func(f *engine.IndicatorFrame, i int) bool
	sell func(f *engine.IndicatorFrame, i int) bool
}

// Parse resolves a strategy name from the fixed catalog. Unknown names are
// rejected here, at construction, not during the run.
func Parse(name string) (*Strategy, error) {
	for k, n := range kindNames {
		if n == name {
			return &Strategy{Kind: k, buy: buyFuncs[k], sell: sellFuncs[k]}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
}

// Names lists the valid strategy names.
func Names() []string {
	out := make([]string, 0, len(kindNames))
	for k := GoldenCross; k <= Breakout; k++ {
		out = append(out, kindNames[k])
	}
	return out
}

// Signals evaluates the strategy over the frame and returns the binary
// position state per bar: 1 = long, 0 = flat. A +1/-1 trigger persists until
// the opposite trigger fires; bars with no trigger inherit the prior state.
func (s *Strategy) Signals(f *engine.IndicatorFrame) []int {
	n := f.Series.Len()
	out := make([]int, n)
	state := 0
	for i := 0; i < n; i++ {
		switch {
		case s.buy(f, i):
			state = 1
		case s.sell(f, i):
			state = 0
		}
		out[i] = state
	}
	return out
}

// crossAbove reports a[i] > b[i] with a[i-1] <= b[i-1]. NaN on either side of
// either bar suppresses the cross.
func crossAbove(a, b []float64, i int) bool {
	return i > 0 && a[i] > b[i] && a[i-1] <= b[i-1]
}

func crossBelow(a, b []float64, i int) bool {
	return i > 0 && a[i] < b[i] && a[i-1] >= b[i-1]
}

func crossUnderLevel(xs []float64, level float64, i int) bool {
	return i > 0 && xs[i] < level && xs[i-1] >= level
}

func crossOverLevel(xs []float64, level float64, i int) bool {
	return i > 0 && xs[i] > level && xs[i-1] <= level
}

var buyFuncs = map[Kind]func(f *engine.IndicatorFrame, i int) bool{
	GoldenCross: func(f *engine.IndicatorFrame, i int) bool {
		return crossAbove(f.SMAShort, f.SMALong, i)
	},
	RSI: func(f *engine.IndicatorFrame, i int) bool {
		// Oversold entry
		return crossUnderLevel(f.RSI, 30, i)
	},
	MACD: func(f *engine.IndicatorFrame, i int) bool {
		return crossAbove(f.MACD, f.MACDSignal, i)
	},
	Composite: func(f *engine.IndicatorFrame, i int) bool {
		maBuy := crossAbove(f.SMAShort, f.SMALong, i)
		macdBuy := crossAbove(f.MACD, f.MACDSignal, i)
		volConfirm := f.Series.Bars[i].Volume > f.VolMA[i]
		trendConfirm := f.ADX[i] > 20 && f.PlusDI[i] > f.MinusDI[i]
		return (maBuy || macdBuy) && volConfirm && trendConfirm
	},
	Momentum: func(f *engine.IndicatorFrame, i int) bool {
		priceAboveMA := f.Series.Bars[i].Close > f.SMAShort[i]
		positiveMomentum := f.MomentumPct[i] > 2.0
		volConfirm := f.Series.Bars[i].Volume > f.VolMA[i]
		return priceAboveMA && positiveMomentum && volConfirm
	},
	MeanReversion: func(f *engine.IndicatorFrame, i int) bool {
		return f.Series.Bars[i].Close < f.BBLower[i] && f.RSI[i] < 35
	},
	Breakout: func(f *engine.IndicatorFrame, i int) bool {
		maBreakout := i > 0 && f.Series.Bars[i].Close > f.SMAShort[i] &&
			f.Series.Bars[i-1].Close <= f.SMAShort[i-1]
		volSurge := f.Series.Bars[i].Volume > f.VolMA[i]*1.5
		return maBreakout && volSurge && f.ADX[i] > 25
	},
}

var sellFuncs = map[Kind]func(f *engine.IndicatorFrame, i int) bool{
	GoldenCross: func(f *engine.IndicatorFrame, i int) bool {
		return crossBelow(f.SMAShort, f.SMALong, i)
	},
	RSI: func(f *engine.IndicatorFrame, i int) bool {
		// Overbought exit
		return crossOverLevel(f.RSI, 70, i)
	},
	MACD: func(f *engine.IndicatorFrame, i int) bool {
		return crossBelow(f.MACD, f.MACDSignal, i)
	},
	Composite: func(f *engine.IndicatorFrame, i int) bool {
		// Bullish trend broken
		return f.PlusDI[i] < f.MinusDI[i]
	},
	Momentum: func(f *engine.IndicatorFrame, i int) bool {
		return f.MomentumPct[i] < -1.0 || f.Series.Bars[i].Close < f.SMAShort[i]
	},
	MeanReversion: func(f *engine.IndicatorFrame, i int) bool {
		return f.Series.Bars[i].Close > f.BBUpper[i] || f.RSI[i] > 65
	},
	Breakout: func(f *engine.IndicatorFrame, i int) bool {
		return f.Series.Bars[i].Close < f.SMAShort[i] && f.MinusDI[i] > f.PlusDI[i]
	},
}
