package engine

import (
	"fmt"
	"time"
)

// Bar is a single daily OHLCV bar.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered sequence of daily bars, one per trading day.
type Series struct {
	Bars []Bar
}

func NewSeries(bars []Bar) (*Series, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("bar %d (%s): dates must be strictly ascending", i, bars[i].Date.Format("2006-01-02"))
		}
	}
	return &Series{Bars: bars}, nil
}

func (s *Series) Len() int { return len(s.Bars) }

// Closes returns the close column.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// DailyReturns returns close-to-close fractional returns, one per bar after the first.
func (s *Series) DailyReturns() []float64 {
	if len(s.Bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(s.Bars)-1)
	for i := 1; i < len(s.Bars); i++ {
		prev := s.Bars[i-1].Close
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (s.Bars[i].Close-prev)/prev)
	}
	return out
}

// Slice returns the sub-series within [start, end]. Zero bounds are open.
func (s *Series) Slice(start, end time.Time) *Series {
	lo, hi := 0, len(s.Bars)
	if !start.IsZero() {
		for lo < hi && s.Bars[lo].Date.Before(start) {
			lo++
		}
	}
	if !end.IsZero() {
		for hi > lo && s.Bars[hi-1].Date.After(end) {
			hi--
		}
	}
	return &Series{Bars: s.Bars[lo:hi]}
}
