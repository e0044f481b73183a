package publish

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsPublisher overwrites a sheet range with the current series.
type SheetsPublisher struct {
	service       *sheets.Service
	spreadsheetID string
	rng           string
	loc           *time.Location
}

// NewSheetsPublisher creates a Sheets client. Extra client options (endpoint, HTTP client)
// are passed through.
func NewSheetsPublisher(ctx context.Context, spreadsheetID, rng string, loc *time.Location, opts ...option.ClientOption) (*SheetsPublisher, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SheetsPublisher{service: service, spreadsheetID: spreadsheetID, rng: rng, loc: loc}, nil
}

// Name implements Publisher.
func (s *SheetsPublisher) Name() string { return "sheets" }

// Publish implements Publisher.
func (s *SheetsPublisher) Publish(ctx context.Context, rel Release) error {
	values := make([][]interface{}, 0, len(rel.Series)+1)
	values = append(values, []interface{}{"timestamp", "pct"})
	for _, p := range rel.Series {
		values = append(values, []interface{}{p.Time.In(s.loc).Format(time.RFC3339), p.Percent})
	}

	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update sheet range %s: %w", s.rng, err)
	}
	return nil
}
