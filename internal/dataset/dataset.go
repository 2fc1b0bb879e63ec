package dataset

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Format identifies the tabular encoding a dataset was read from or is written to.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Column types as reported to clients. They mirror gota's series types.
const (
	TypeInt    = string(series.Int)
	TypeFloat  = string(series.Float)
	TypeBool   = string(series.Bool)
	TypeString = string(series.String)
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("file has no header row")
	ErrMalformedFile       = errors.New("malformed file")
	ErrUnknownColumn       = errors.New("unknown column")
	ErrEmptySelection      = errors.New("at least one column must be selected")
)

// UnsupportedTypeError reports the extension that could not be read.
type UnsupportedTypeError struct {
	Ext string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("Unsupported file type: %s", e.Ext)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedFileType }

// Column describes one column of a dataset.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Dataset is an uploaded table held in memory for the duration of a session.
// Cleaning operations mutate the frame in place; the column selection is a
// view over the current frame and never drops data.
type Dataset struct {
	ID         string
	FileName   string
	Size       int64
	Source     Format
	UploadedAt time.Time

	frame     dataframe.DataFrame
	selection []string
}

// Nrow returns the number of rows in the full frame.
func (d *Dataset) Nrow() int { return d.frame.Nrow() }

// Ncol returns the number of columns in the full frame.
func (d *Dataset) Ncol() int { return d.frame.Ncol() }

// SizeKB returns the upload size in kilobytes.
func (d *Dataset) SizeKB() float64 {
	return math.Round(float64(d.Size)/1024*100) / 100
}

// Columns lists every column of the full frame in file order.
func (d *Dataset) Columns() []Column {
	return describe(d.frame)
}

// Frame returns a copy of the full frame.
func (d *Dataset) Frame() dataframe.DataFrame {
	return d.frame.Copy()
}

// Clone returns an independent copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	c := *d
	c.frame = d.frame.Copy()
	if d.selection != nil {
		c.selection = append([]string(nil), d.selection...)
	}
	return &c
}

func describe(df dataframe.DataFrame) []Column {
	names := df.Names()
	types := df.Types()
	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Type: string(types[i])}
	}
	return cols
}

// cellValue returns the Go value of a cell, or nil when it is missing.
func cellValue(s series.Series, i int) interface{} {
	e := s.Elem(i)
	if e.IsNA() {
		return nil
	}
	return e.Val()
}

func isNumeric(t series.Type) bool {
	return t == series.Int || t == series.Float
}
