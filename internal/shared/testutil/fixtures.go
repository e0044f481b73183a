package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hinosemi/internal/index"
)

// Bar is one fixture row. Time is RFC3339.
type Bar struct {
	Time  string
	Open  float64
	Close float64
}

// WriteBars writes <dir>/<symbol>_<interval>.csv in the default csv provider schema.
func WriteBars(t *testing.T, dir, symbol, interval string, bars ...Bar) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Datetime,Open,Close\n")
	for _, bar := range bars {
		fmt.Fprintf(&b, "%s,%g,%g\n", bar.Time, bar.Open, bar.Close)
	}
	return writeFile(t, dir, symbol+"_"+interval+".csv", b.String())
}

// WriteDaily writes <dir>/<symbol>_daily.csv from date → close pairs in the given order.
func WriteDaily(t *testing.T, dir, symbol string, dates []string, closes []float64) string {
	t.Helper()
	if len(dates) != len(closes) {
		t.Fatalf("WriteDaily: %d dates for %d closes", len(dates), len(closes))
	}
	var b strings.Builder
	b.WriteString("Datetime,Open,Close\n")
	for i, d := range dates {
		fmt.Fprintf(&b, "%s,%g,%g\n", d, closes[i], closes[i])
	}
	return writeFile(t, dir, symbol+"_daily.csv", b.String())
}

// Instruments builds a basket whose names equal their symbols.
func Instruments(symbols ...string) []index.Instrument {
	out := make([]index.Instrument, len(symbols))
	for i, s := range symbols {
		out[i] = index.Instrument{Symbol: s, Name: s}
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
