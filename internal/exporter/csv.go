package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"hinosemi/internal/index"
)

// SeriesHeader is the fixed header of the intraday CSV.
var SeriesHeader = []string{"timestamp", "pct"}

// WriteSeriesCSV writes the series as timestamp,pct rows in ascending time order.
func WriteSeriesCSV(w io.Writer, series index.IndexSeries, loc *time.Location) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(SeriesHeader); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, p := range series {
		if err := writer.Write([]string{formatTimestamp(p.Time, loc), formatPercent(p.Percent)}); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadSeriesCSV parses a file written by WriteSeriesCSV.
func ReadSeriesCSV(r io.Reader) (index.IndexSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(SeriesHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !strings.EqualFold(header[0], SeriesHeader[0]) || !strings.EqualFold(header[1], SeriesHeader[1]) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var series index.IndexSeries
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pct, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		series = append(series, index.IndexPoint{Time: ts, Percent: pct, Resolved: true})
	}
	return series, nil
}

// LoadSeriesCSV reads an intraday CSV artifact from disk.
func LoadSeriesCSV(path string) (index.IndexSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series, err := ReadSeriesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}
