package engine

import (
	"testing"
	"time"
)

func TestNewSeriesRejectsUnorderedDates(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Date: day, Close: 100},
		{Date: day.AddDate(0, 0, 2), Close: 101},
		{Date: day.AddDate(0, 0, 1), Close: 102},
	}
	if _, err := NewSeries(bars); err == nil {
		t.Fatal("expected error for out-of-order dates")
	}
	// Duplicates are rejected too.
	bars[2].Date = bars[1].Date
	if _, err := NewSeries(bars); err == nil {
		t.Fatal("expected error for duplicate dates")
	}
}

func TestDailyReturns(t *testing.T) {
	s := mkSeries(t, []float64{100, 110, 99})
	got := s.DailyReturns()
	want := []float64{0.1, -0.1}
	if len(got) != len(want) {
		t.Fatalf("returns = %v, want %v", got, want)
	}
	for i := range want {
		if diff := got[i] - want[i]; diff > 1e-12 || diff < -1e-12 {
			t.Fatalf("returns[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if got := mkSeries(t, []float64{100}).DailyReturns(); got != nil {
		t.Fatalf("single-bar returns = %v, want nil", got)
	}
}

func TestSliceBounds(t *testing.T) {
	s := mkSeries(t, []float64{100, 101, 102, 103, 104})
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	if got := s.Slice(time.Time{}, time.Time{}).Len(); got != 5 {
		t.Fatalf("open slice length = %d, want 5", got)
	}
	sub := s.Slice(day(2), day(4))
	if sub.Len() != 3 || sub.Bars[0].Close != 101 || sub.Bars[2].Close != 103 {
		t.Fatalf("inclusive slice = %+v", sub.Bars)
	}
	if got := s.Slice(day(10), time.Time{}).Len(); got != 0 {
		t.Fatalf("out-of-range slice length = %d, want 0", got)
	}
}
