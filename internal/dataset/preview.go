package dataset

import (
	"math"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DefaultPreviewRows matches the row count of a dataframe head.
const DefaultPreviewRows = 5

// Table is a materialized view: column descriptions plus row-major cells.
// Missing cells are nil.
type Table struct {
	Columns []Column        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Names returns the column names of the table.
func (t Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Summary is what the page shows for one uploaded file.
type Summary struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	SizeKB     float64   `json:"size_kb"`
	Format     Format    `json:"format"`
	Rows       int       `json:"rows"`
	Columns    []Column  `json:"columns"`
	Selected   []string  `json:"selected"`
	Preview    Table     `json:"preview"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Head returns the first n rows of the current view, ready for JSON.
func (d *Dataset) Head(n int) Table {
	return materialize(d.View(), n, jsonSafe)
}

// Table returns every row of the current view with cell values untouched.
func (d *Dataset) Table() Table {
	view := d.View()
	return materialize(view, view.Nrow(), nil)
}

func materialize(view dataframe.DataFrame, n int, conv func(interface{}) interface{}) Table {
	if n < 0 {
		n = 0
	}
	if n > view.Nrow() {
		n = view.Nrow()
	}

	names := view.Names()
	cols := make([]series.Series, len(names))
	for j, name := range names {
		cols[j] = view.Col(name)
	}

	rows := make([][]interface{}, n)
	for i := 0; i < n; i++ {
		row := make([]interface{}, len(cols))
		for j, s := range cols {
			v := cellValue(s, i)
			if conv != nil {
				v = conv(v)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return Table{Columns: describe(view), Rows: rows}
}

// Summarize builds the display summary with a preview of n rows.
func (d *Dataset) Summarize(n int) Summary {
	return Summary{
		ID:         d.ID,
		FileName:   d.FileName,
		SizeKB:     d.SizeKB(),
		Format:     d.Source,
		Rows:       d.Nrow(),
		Columns:    d.Columns(),
		Selected:   d.Selection(),
		Preview:    d.Head(n),
		UploadedAt: d.UploadedAt,
	}
}

// jsonSafe renders non-finite floats as text since JSON has no literal for them.
func jsonSafe(v interface{}) interface{} {
	if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return v
}
