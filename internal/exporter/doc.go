// Package exporter converts datasets into downloadable CSV and Excel files.
//
// This package contains three main components:
//
// CSVWriter: writes a table as CSV with a header row and no index column,
// optionally prefixed with a UTF-8 BOM for Excel compatibility.
//
// ExcelWriter: writes a table into a single-sheet xlsx workbook, keeping
// numeric and boolean cell types.
//
// Converter: picks the writer for a Target and derives the download file
// name and content type.
//
// Example usage:
//
//	conv := exporter.NewConverter()
//	art, err := conv.Convert(ds, exporter.TargetExcel)
//	if err != nil {
//	    return err
//	}
//	// art.FileName == "sales.xlsx" for an upload named "sales.csv"
package exporter
