package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"hinosemi/internal/index"
)

// WriteWorkbook writes the series to a single-sheet xlsx workbook named after key.
func WriteWorkbook(w io.Writer, key string, series index.IndexSeries, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := key
	if sheet == "" {
		sheet = "intraday"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{SeriesHeader[0], SeriesHeader[1]}); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, p := range series {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{formatTimestamp(p.Time, loc), p.Percent}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return err
	}
	return f.Write(w)
}
