package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hinosemi/internal/index"
)

// Schema names the columns of a fixture file and how its timestamps are written.
type Schema struct {
	TimeColumn  string `yaml:"time_column" json:"time_column" envconfig:"TIME_COLUMN" validate:"required"`
	OpenColumn  string `yaml:"open_column" json:"open_column" envconfig:"OPEN_COLUMN" validate:"required"`
	CloseColumn string `yaml:"close_column" json:"close_column" envconfig:"CLOSE_COLUMN" validate:"required"`
	TimeLayout  string `yaml:"time_layout" json:"time_layout" envconfig:"TIME_LAYOUT" validate:"required"`
	DateLayout  string `yaml:"date_layout" json:"date_layout" envconfig:"DATE_LAYOUT" validate:"required"`
}

// DefaultSchema matches files written by the Yahoo download tooling.
func DefaultSchema() Schema {
	return Schema{
		TimeColumn:  "Datetime",
		OpenColumn:  "Open",
		CloseColumn: "Close",
		TimeLayout:  time.RFC3339,
		DateLayout:  "2006-01-02",
	}
}

// CSVProvider replays frozen per-symbol CSV files.
//
// Intraday files are named <symbol>_<interval>.csv and daily history <symbol>_daily.csv.
// Missing files mean "no data" rather than an error.
type CSVProvider struct {
	dir    string
	schema Schema
	loc    *time.Location
	logger *slog.Logger
}

// NewCSVProvider creates a replay provider. Timestamps without a zone are read in loc.
func NewCSVProvider(dir string, schema Schema, loc *time.Location, logger *slog.Logger) (*CSVProvider, error) {
	if dir == "" {
		return nil, errors.New("csv provider: directory is required")
	}
	if schema.TimeColumn == "" || schema.CloseColumn == "" || schema.TimeLayout == "" {
		return nil, errors.New("csv provider: schema requires time column, close column and time layout")
	}
	if schema.DateLayout == "" {
		schema.DateLayout = "2006-01-02"
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVProvider{
		dir:    dir,
		schema: schema,
		loc:    loc,
		logger: logger.With(slog.String("component", "csv_provider")),
	}, nil
}

// Name implements Provider.
func (c *CSVProvider) Name() string { return "csv" }

// IntradayFile returns the fixture path for symbol at interval.
func (c *CSVProvider) IntradayFile(symbol, interval string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.csv", symbol, interval))
}

// DailyFile returns the daily history fixture path for symbol.
func (c *CSVProvider) DailyFile(symbol string) string {
	return filepath.Join(c.dir, symbol+"_daily.csv")
}

// Intraday implements Provider.
func (c *CSVProvider) Intraday(ctx context.Context, symbol, interval string) ([]index.PricePoint, error) {
	rows, cols, err := c.readFile(c.IntradayFile(symbol, interval), c.schema.TimeColumn, c.schema.OpenColumn, c.schema.CloseColumn)
	if err != nil || rows == nil {
		return nil, err
	}

	points := make([]index.PricePoint, 0, len(rows))
	for n, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ts, err := c.parseTime(row[cols[0]], c.schema.TimeLayout)
		if err != nil {
			c.logger.DebugContext(ctx, "skipping row with bad timestamp",
				slog.String("symbol", symbol), slog.Int("row", n+2), slog.String("error", err.Error()))
			continue
		}
		p := index.PricePoint{Time: ts, Open: parsePrice(row[cols[1]]), Close: parsePrice(row[cols[2]])}
		if p.Valid() {
			points = append(points, p)
		}
	}
	return points, nil
}

// DailyCloses implements Provider. The lookback is ignored; fixtures are already bounded.
func (c *CSVProvider) DailyCloses(ctx context.Context, symbol string, _ time.Duration) ([]index.DailyClose, error) {
	rows, cols, err := c.readFile(c.DailyFile(symbol), c.schema.TimeColumn, c.schema.CloseColumn)
	if err != nil || rows == nil {
		return nil, err
	}

	closes := make([]index.DailyClose, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		date, err := c.parseTime(row[cols[0]], c.schema.DateLayout)
		if err != nil {
			continue
		}
		if v := parsePrice(row[cols[1]]); v > 0 {
			closes = append(closes, index.DailyClose{Date: date, Close: v})
		}
	}
	return closes, nil
}

// readFile returns the data rows and the indexes of the requested columns. A missing file
// yields nil rows and a nil error.
func (c *CSVProvider) readFile(path string, columns ...string) ([][]string, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	cols := make([]int, len(columns))
	for i, name := range columns {
		cols[i] = columnIndex(header, name)
		if cols[i] < 0 {
			return nil, nil, fmt.Errorf("%s: missing column %q", path, name)
		}
	}

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(record) < len(header) {
			continue
		}
		rows = append(rows, record)
	}
	if rows == nil {
		rows = [][]string{}
	}
	return rows, cols, nil
}

func (c *CSVProvider) parseTime(s, layout string) (time.Time, error) {
	return time.ParseInLocation(layout, strings.TrimSpace(s), c.loc)
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")), name) {
			return i
		}
	}
	return -1
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
