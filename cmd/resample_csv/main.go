// Resamples an intraday OHLCV CSV into the daily bars the backtester
// consumes. Rows are bucketed by UTC calendar day: open is the first row of
// the day, close the last, high/low the extremes, volume the sum.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type row struct {
	ts                  time.Time
	open, high          float64
	low, close_, volume float64
}

func main() {
	in := flag.String("in", "", "input intraday CSV (timestamp,open,high,low,close,volume)")
	out := flag.String("out", "", "output daily CSV path")
	flag.Parse()
	if *in == "" || *out == "" {
		log.Fatal("-in and -out are required")
	}

	rows, err := readIntraday(*in)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}
	if len(rows) == 0 {
		log.Fatal("no input rows parsed")
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	days := make(map[string]*row)
	var order []string
	for _, r := range rows {
		day := r.ts.Format("2006-01-02")
		agg, ok := days[day]
		if !ok {
			cp := r
			days[day] = &cp
			order = append(order, day)
			continue
		}
		if r.high > agg.high {
			agg.high = r.high
		}
		if r.low < agg.low {
			agg.low = r.low
		}
		agg.close_ = r.close_
		agg.volume += r.volume
	}
	sort.Strings(order)

	of, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer of.Close()
	w := bufio.NewWriter(of)
	fmt.Fprintln(w, "date,open,high,low,close,volume")
	for _, day := range order {
		b := days[day]
		fmt.Fprintf(w, "%s,%.8f,%.8f,%.8f,%.8f,%.8f\n", day, b.open, b.high, b.low, b.close_, b.volume)
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	log.Printf("resampled %d intraday rows into %d daily bars", len(rows), len(order))
}

func readIntraday(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader
	br := bufio.NewReader(f)
	if head, _ := br.Peek(2); len(head) >= 2 && ((head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF)) {
		reader = transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	} else {
		reader = br
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows []row
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++
		if len(rec) < 6 {
			continue
		}
		ts, err := parseTimestamp(strings.TrimPrefix(strings.TrimSpace(rec[0]), "\ufeff"))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		vals := make([]float64, 5)
		for i := range vals {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d col %d: %w", line, i+2, err)
			}
			vals[i] = v
		}
		rows = append(rows, row{ts: ts, open: vals[0], high: vals[1], low: vals[2], close_: vals[3], volume: vals[4]})
	}
	return rows, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
