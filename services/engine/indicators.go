package engine

import "math"

// IndicatorFrame holds derived indicator columns aligned to the bar index.
// NaN marks a value that is not warmed up yet; every boolean condition over
// NaN evaluates false, so unwarmed bars can never fire a trigger.
type IndicatorFrame struct {
	Series *Series

	SMAShort []float64
	SMALong  []float64
	RSI      []float64

	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64

	ATR     []float64
	PlusDI  []float64
	MinusDI []float64
	ADX     []float64

	VolMA    []float64
	VolSpike []bool

	Momentum    []float64
	MomentumPct []float64

	BBMiddle []float64
	BBUpper  []float64
	BBLower  []float64
}

// IndicatorConfig parameterizes the pipeline. Zero values fall back to the
// standard daily-cadence defaults.
type IndicatorConfig struct {
	ShortWindow    int // SMA short, default 50
	LongWindow     int // SMA long, default 200
	RSIPeriod      int // default 14
	MACDShortSpan  int // default 12
	MACDLongSpan   int // default 26
	MACDSignalSpan int // default 9
	ATRPeriod      int // default 14
	ADXPeriod      int // default 14
	VolumeWindow   int // default 20
	MomentumPeriod int // default 10
	BBPeriod       int // default 20
	BBStdDev       float64
}

func (c IndicatorConfig) withDefaults() IndicatorConfig {
	def := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	def(&c.ShortWindow, 50)
	def(&c.LongWindow, 200)
	def(&c.RSIPeriod, 14)
	def(&c.MACDShortSpan, 12)
	def(&c.MACDLongSpan, 26)
	def(&c.MACDSignalSpan, 9)
	def(&c.ATRPeriod, 14)
	def(&c.ADXPeriod, 14)
	def(&c.VolumeWindow, 20)
	def(&c.MomentumPeriod, 10)
	def(&c.BBPeriod, 20)
	if c.BBStdDev <= 0 {
		c.BBStdDev = 2
	}
	return c
}

// ComputeIndicators derives the full indicator frame for a series.
func ComputeIndicators(s *Series, cfg IndicatorConfig) *IndicatorFrame {
	cfg = cfg.withDefaults()
	n := s.Len()
	closes := s.Closes()

	f := &IndicatorFrame{Series: s}
	f.SMAShort = rollingMean(closes, cfg.ShortWindow)
	f.SMALong = rollingMean(closes, cfg.LongWindow)
	f.RSI = computeRSI(closes, cfg.RSIPeriod)

	emaShort := ewmSpan(closes, cfg.MACDShortSpan)
	emaLong := ewmSpan(closes, cfg.MACDLongSpan)
	f.MACD = make([]float64, n)
	for i := range f.MACD {
		f.MACD[i] = emaShort[i] - emaLong[i]
	}
	f.MACDSignal = ewmSpan(f.MACD, cfg.MACDSignalSpan)
	f.MACDHist = make([]float64, n)
	for i := range f.MACDHist {
		f.MACDHist[i] = f.MACD[i] - f.MACDSignal[i]
	}

	f.ATR = computeATR(s, cfg.ATRPeriod)
	f.PlusDI, f.MinusDI, f.ADX = computeADX(s, f.ATR, cfg.ADXPeriod)

	vols := make([]float64, n)
	for i, b := range s.Bars {
		vols[i] = b.Volume
	}
	f.VolMA = rollingMean(vols, cfg.VolumeWindow)
	f.VolSpike = make([]bool, n)
	for i := range f.VolSpike {
		f.VolSpike[i] = vols[i] > f.VolMA[i]*2.0
	}

	f.Momentum = make([]float64, n)
	f.MomentumPct = make([]float64, n)
	for i := 0; i < n; i++ {
		if i < cfg.MomentumPeriod {
			f.Momentum[i] = math.NaN()
			f.MomentumPct[i] = math.NaN()
			continue
		}
		prev := closes[i-cfg.MomentumPeriod]
		f.Momentum[i] = closes[i] - prev
		if prev == 0 {
			f.MomentumPct[i] = math.NaN()
		} else {
			f.MomentumPct[i] = (closes[i] - prev) / prev * 100
		}
	}

	f.BBMiddle = rollingMean(closes, cfg.BBPeriod)
	bbStd := rollingStd(closes, cfg.BBPeriod)
	f.BBUpper = make([]float64, n)
	f.BBLower = make([]float64, n)
	for i := 0; i < n; i++ {
		f.BBUpper[i] = f.BBMiddle[i] + bbStd[i]*cfg.BBStdDev
		f.BBLower[i] = f.BBMiddle[i] - bbStd[i]*cfg.BBStdDev
	}

	return f
}

// ValidATR reports the ATR at bar i, with ok=false while unwarmed or zero.
func (f *IndicatorFrame) ValidATR(i int) (float64, bool) {
	v := f.ATR[i]
	if math.IsNaN(v) || v <= 0 {
		return 0, false
	}
	return v, true
}

// rollingMean is a trailing simple mean; NaN until the window fills, and NaN
// whenever the window contains an undefined value.
func rollingMean(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		if i < w-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - w + 1; j <= i; j++ {
			sum += xs[j]
		}
		out[i] = sum / float64(w)
	}
	return out
}

// rollingStd is the trailing sample standard deviation (n-1 denominator).
func rollingStd(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		if i < w-1 {
			out[i] = math.NaN()
			continue
		}
		mean := 0.0
		for j := i - w + 1; j <= i; j++ {
			mean += xs[j]
		}
		mean /= float64(w)
		ss := 0.0
		for j := i - w + 1; j <= i; j++ {
			d := xs[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(w-1))
	}
	return out
}

// ewmSpan is the recursive EMA with alpha = 2/(span+1), seeded at the first
// value, no bias correction.
func ewmSpan(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = out[i-1] + alpha*(xs[i]-out[i-1])
	}
	return out
}

// ewmAlpha is the recursive EMA with an explicit alpha (Wilder smoothing uses
// alpha = 1/period). Leading NaNs are skipped; the first defined value seeds
// the average.
func ewmAlpha(xs []float64, alpha float64) []float64 {
	out := make([]float64, len(xs))
	prev := math.NaN()
	for i, x := range xs {
		if math.IsNaN(x) {
			out[i] = prev
			continue
		}
		if math.IsNaN(prev) {
			prev = x
		} else {
			prev = prev + alpha*(x-prev)
		}
		out[i] = prev
	}
	return out
}

func computeRSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	alpha := 1.0 / float64(period)
	avgGain := ewmAlpha(gains, alpha)
	avgLoss := ewmAlpha(losses, alpha)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if avgLoss[i] == 0 {
			// A loss-free window is an extreme, not a divide-by-zero: clamp
			// to full saturation. A window with no movement at all stays
			// undefined.
			if avgGain[i] == 0 {
				out[i] = math.NaN()
			} else {
				out[i] = 100
			}
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

func computeATR(s *Series, period int) []float64 {
	n := s.Len()
	tr := make([]float64, n)
	for i, b := range s.Bars {
		if i == 0 {
			tr[i] = b.High - b.Low
			continue
		}
		prevClose := s.Bars[i-1].Close
		tr[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	return rollingMean(tr, period)
}

func computeADX(s *Series, atr []float64, period int) (plusDI, minusDI, adx []float64) {
	n := s.Len()
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	plusDM[0] = math.NaN()
	minusDM[0] = math.NaN()
	for i := 1; i < n; i++ {
		plusDM[i] = math.Max(s.Bars[i].High-s.Bars[i-1].High, 0)
		minusDM[i] = math.Max(s.Bars[i-1].Low-s.Bars[i].Low, 0)
	}
	alpha := 1.0 / float64(period)
	smoothPlus := ewmAlpha(plusDM, alpha)
	smoothMinus := ewmAlpha(minusDM, alpha)

	plusDI = make([]float64, n)
	minusDI = make([]float64, n)
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(atr[i]) || atr[i] == 0 {
			plusDI[i] = math.NaN()
			minusDI[i] = math.NaN()
			dx[i] = math.NaN()
			continue
		}
		plusDI[i] = 100 * smoothPlus[i] / atr[i]
		minusDI[i] = 100 * smoothMinus[i] / atr[i]
		sum := plusDI[i] + minusDI[i]
		if sum == 0 {
			dx[i] = math.NaN()
			continue
		}
		dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
	}
	adx = rollingMean(dx, period)
	return plusDI, minusDI, adx
}
