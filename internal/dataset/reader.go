package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// missingTokens are cell values read as missing.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"<NA>": {},
	"#N/A": {},
}

// gota reads this literal as NA for every series type.
const naLiteral = "NaN"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatForName picks the reader for a file name by its extension.
func FormatForName(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", &UnsupportedTypeError{Ext: ext}
	}
}

// Read parses an uploaded file into a dataset. The extension decides the
// parser; any extension other than .csv or .xlsx is rejected without reading r.
func Read(name string, r io.Reader, size int64) (*Dataset, error) {
	format, err := FormatForName(name)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatCSV:
		rows, err = readCSVRows(r)
	case FormatXLSX:
		rows, err = readXLSXRows(r)
	}
	if err != nil {
		return nil, err
	}

	frame, err := buildFrame(rows)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		ID:         uuid.New().String(),
		FileName:   name,
		Size:       size,
		Source:     format,
		UploadedAt: time.Now(),
		frame:      frame,
	}, nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	width := len(rows[0])
	for i, row := range rows[1:] {
		if len(row) > width {
			return nil, fmt.Errorf("%w: expected %d fields in line %d, saw %d",
				ErrMalformedFile, width, i+2, len(row))
		}
	}
	return rows, nil
}

func readXLSXRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}

	// Trailing blank rows carry no data.
	for len(rows) > 0 && isBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	// A sheet may hold data to the right of its last header cell.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(rows[0]) < width {
		rows[0] = append(rows[0], "")
	}
	return rows, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// buildFrame turns a header row plus data rows into a typed frame.
func buildFrame(rows [][]string) (dataframe.DataFrame, error) {
	header := normalizeHeader(rows[0])
	if len(header) == 0 {
		return dataframe.DataFrame{}, ErrEmptyFile
	}
	body := rows[1:]

	columns := make([]series.Series, len(header))
	for j, name := range header {
		raw := make([]string, len(body))
		for i, row := range body {
			if j < len(row) {
				raw[i] = row[j]
			} else {
				raw[i] = ""
			}
		}
		columns[j] = buildSeries(name, raw)
	}

	df := dataframe.New(columns...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrMalformedFile, df.Err)
	}
	return df, nil
}

// normalizeHeader names blank or all-space headers "Unnamed: i" and suffixes
// repeated names with ".1", ".2" and so on. Other headers keep their text.
func normalizeHeader(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]struct{}, len(raw))
	suffix := make(map[string]int)
	for i, name := range raw {
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for {
			if _, dup := seen[candidate]; !dup {
				break
			}
			suffix[name]++
			candidate = fmt.Sprintf("%s.%d", name, suffix[name])
		}
		seen[candidate] = struct{}{}
		out[i] = candidate
	}
	return out
}

func isMissing(v string) bool {
	_, ok := missingTokens[strings.TrimSpace(v)]
	return ok
}

// buildSeries infers the narrowest type that fits every present value.
func buildSeries(name string, raw []string) series.Series {
	t := inferType(raw)
	values := make([]string, len(raw))
	for i, v := range raw {
		switch {
		case isMissing(v):
			values[i] = naLiteral
		case t == series.String:
			values[i] = v
		case t == series.Bool:
			values[i] = strings.ToLower(strings.TrimSpace(v))
		default:
			values[i] = strings.TrimSpace(v)
		}
	}
	return series.New(values, t, name)
}

func inferType(raw []string) series.Type {
	isInt, isFloat, isBool := true, true, true
	present := 0
	for _, v := range raw {
		if isMissing(v) {
			continue
		}
		present++
		v = strings.TrimSpace(v)
		if isInt {
			if _, err := strconv.Atoi(v); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			lv := strings.ToLower(v)
			if lv != "true" && lv != "false" {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return series.String
		}
	}

	switch {
	case present == 0:
		return series.Float
	case isInt:
		return series.Int
	case isFloat:
		return series.Float
	case isBool:
		return series.Bool
	default:
		return series.String
	}
}

// IsUnsupported reports whether err rejects a file by its extension.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedFileType)
}
