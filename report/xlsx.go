package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/pivolan/eda_dashboard/aggregation"
	"github.com/pivolan/eda_dashboard/domain/models"
)

const sheetName = "Aggregation"

// WriteXLSX writes the validated result as a workbook with one sheet: the
// group and value keys as header, one row per category.
func WriteXLSX(w io.Writer, result models.AggregationResult) error {
	keys, err := aggregation.Validate(result)
	if err != nil {
		return err
	}
	categories, values := aggregation.Columns(result, keys)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	// Header row
	for i, h := range []string{keys.Group, keys.Value} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	// Data rows, nulls stay empty
	for r := range categories {
		for c, v := range []interface{}{categories[r], values[r]} {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
