package exporter

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinosemi/internal/index"
)

func TestRoundPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 1.234, want: 1.23},
		{in: 1.235, want: 1.24},
		{in: -1.235, want: -1.24},
		{in: 0.004, want: 0},
		{in: 12.3456789, want: 12.35},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundPercent(tt.in), "RoundPercent(%v)", tt.in)
	}
}

func TestNewSnapshot(t *testing.T) {
	tickers := []string{"8035.T", "6857.T", "285A.T"}
	snap, err := NewSnapshot("HINOSEMI", sampleSeries(), tickers, time.Date(2025, 1, 6, 6, 0, 0, 0, time.UTC), jst)
	require.NoError(t, err)

	assert.Equal(t, "HINOSEMI", snap.Key)
	assert.Equal(t, -1.23, snap.PctIntraday)
	assert.Equal(t, "2025/01/06 15:00", snap.UpdatedAt)
	assert.Equal(t, "pct", snap.Unit)
	assert.Equal(t, tickers, snap.Tickers)

	tickers[0] = "changed"
	assert.Equal(t, "8035.T", snap.Tickers[0])
}

func TestNewSnapshotEmpty(t *testing.T) {
	_, err := NewSnapshot("HINOSEMI", nil, nil, time.Now(), jst)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestWriteSnapshotJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, index.Snapshot{
		Key: "HINOSEMI", PctIntraday: 1.5, UpdatedAt: "2025/01/06 10:00", Unit: "pct", Tickers: []string{"8035.T"},
	}))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Len(t, raw, 5)
	assert.Equal(t, 1.5, raw["pct_intraday"])
	assert.Equal(t, "2025/01/06 10:00", raw["updated_at"])
	assert.Equal(t, []any{"8035.T"}, raw["tickers"])
}
