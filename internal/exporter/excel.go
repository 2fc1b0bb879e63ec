package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"datasweeper/internal/dataset"
)

// DefaultSheetName is the sheet a workbook is written to.
const DefaultSheetName = "Sheet1"

// ExcelWriter encodes tables as a single-sheet xlsx workbook
type ExcelWriter struct {
	sheet string
}

// NewExcelWriter creates a writer for the given sheet name
func NewExcelWriter(sheet string) *ExcelWriter {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &ExcelWriter{sheet: sheet}
}

// Write writes a header row followed by the data rows. Numbers and booleans
// keep their cell types; missing cells are left empty.
func (w *ExcelWriter) Write(out io.Writer, table dataset.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if w.sheet != DefaultSheetName {
		if err := f.SetSheetName(DefaultSheetName, w.sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	for i, name := range table.Names() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(w.sheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header %q: %w", name, err)
		}
	}

	for r, row := range table.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(w.sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
