package exporter

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"datasweeper/internal/dataset"
)

// Target is a conversion output format.
type Target string

const (
	TargetCSV   Target = "csv"
	TargetExcel Target = "excel"
)

// Content types of converted files.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrUnknownTarget = errors.New("unknown conversion target")

// ParseTarget accepts "csv" or "excel" in any case.
func ParseTarget(s string) (Target, error) {
	switch Target(strings.ToLower(strings.TrimSpace(s))) {
	case TargetCSV:
		return TargetCSV, nil
	case TargetExcel:
		return TargetExcel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

// Extension returns the file extension written for the target.
func (t Target) Extension() string {
	if t == TargetExcel {
		return ".xlsx"
	}
	return ".csv"
}

// ContentType returns the MIME type of the target.
func (t Target) ContentType() string {
	if t == TargetExcel {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// Label is the display name of the target.
func (t Target) Label() string {
	if t == TargetExcel {
		return "Excel"
	}
	return "CSV"
}

// Artifact is a converted file ready for download.
type Artifact struct {
	Data        []byte
	FileName    string
	ContentType string
	Label       string
}

// OutputName replaces the trailing extension of name with the target's one.
func OutputName(name string, target Target) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + target.Extension()
}

// Converter turns the current view of a dataset into a downloadable file.
type Converter struct {
	csv   *CSVWriter
	excel *ExcelWriter
}

// NewConverter creates a converter with default writers
func NewConverter() *Converter {
	return &Converter{
		csv:   NewCSVWriter(WriteOptions{}),
		excel: NewExcelWriter(DefaultSheetName),
	}
}

// Convert encodes the selected columns of ds in the target format.
func (c *Converter) Convert(ds *dataset.Dataset, target Target) (*Artifact, error) {
	var buf bytes.Buffer
	table := ds.Table()

	var err error
	switch target {
	case TargetCSV:
		err = c.csv.Write(&buf, table)
	case TargetExcel:
		err = c.excel.Write(&buf, table)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	if err != nil {
		return nil, fmt.Errorf("convert %s to %s: %w", ds.FileName, target, err)
	}

	name := OutputName(ds.FileName, target)
	return &Artifact{
		Data:        buf.Bytes(),
		FileName:    name,
		ContentType: target.ContentType(),
		Label:       fmt.Sprintf("Download %s as %s", ds.FileName, target.Label()),
	}, nil
}
