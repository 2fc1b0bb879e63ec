package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"datasweeper/internal/dataset"
)

// CSVWriter encodes tables as comma separated values
type CSVWriter struct {
	options WriteOptions
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	UseCRLF   bool
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(options WriteOptions) *CSVWriter {
	return &CSVWriter{options: options}
}

// Write writes the header row followed by every data row. No index column
// is written.
func (w *CSVWriter) Write(out io.Writer, table dataset.Table) error {
	if w.options.BOMPrefix {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	writer.UseCRLF = w.options.UseCRLF

	if err := writer.Write(table.Names()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(table.Columns))
	for i, row := range table.Rows {
		for j, v := range row {
			record[j] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
