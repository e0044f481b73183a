package exporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"hinosemi/internal/index"
)

// UpdatedAtLayout formats Snapshot.UpdatedAt.
const UpdatedAtLayout = "2006/01/02 15:04"

// ErrEmptySeries is returned when there is no value to summarize.
var ErrEmptySeries = errors.New("series is empty")

// NewSnapshot summarizes the last value of series. The percent is rounded half away from
// zero to two decimals, and tickers is copied as given.
func NewSnapshot(key string, series index.IndexSeries, tickers []string, generatedAt time.Time, loc *time.Location) (index.Snapshot, error) {
	last, ok := series.Last()
	if !ok {
		return index.Snapshot{}, ErrEmptySeries
	}
	if loc != nil {
		generatedAt = generatedAt.In(loc)
	}
	return index.Snapshot{
		Key:         key,
		PctIntraday: RoundPercent(last.Percent),
		UpdatedAt:   generatedAt.Format(UpdatedAtLayout),
		Unit:        index.Unit,
		Tickers:     append([]string(nil), tickers...),
	}, nil
}

// RoundPercent rounds to two decimals.
func RoundPercent(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// WriteSnapshot encodes the snapshot as indented JSON.
func WriteSnapshot(w io.Writer, snap index.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// LoadSnapshot reads a stats JSON artifact from disk.
func LoadSnapshot(path string) (index.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return index.Snapshot{}, err
	}
	var snap index.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return index.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
