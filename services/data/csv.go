// Package data loads daily bar files for the command-line tools.
package data

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"stratlab/services/engine"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// LoadCSV reads a daily-bar CSV with columns date,open,high,low,close,volume.
// A header row is skipped if present, and UTF-16 or UTF-8 BOM files (common
// spreadsheet exports) are decoded transparently.
func LoadCSV(path string) (*engine.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	var reader io.Reader
	br := bufio.NewReader(file)
	if head, _ := br.Peek(2); len(head) >= 2 && ((head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF)) {
		reader = transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	} else {
		reader = br
	}

	r := csv.NewReader(reader)
	r.ReuseRecord = false
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	bars := make([]engine.Bar, 0, 1_000)
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line+1, err)
		}
		line++
		if len(rec) < 6 {
			continue
		}
		rec[0] = strings.TrimPrefix(strings.TrimSpace(rec[0]), "\ufeff")

		date, err := parseDate(rec[0])
		if err != nil {
			// Header row
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bar := engine.Bar{Date: date}
		for i, dst := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d col %d: %w", line, i+2, err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}
	return engine.NewSeries(bars)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	// Millisecond epoch, as exchange dumps use
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
