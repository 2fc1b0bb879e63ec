package dataset

import (
	"fmt"
	"strconv"

	"github.com/go-gota/gota/series"
	"github.com/montanaflynn/stats"
)

// Fill records the imputation applied to one column.
type Fill struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Filled int     `json:"filled"`
}

// DropDuplicates removes rows equal to an earlier row across every column,
// keeping the first occurrence. Missing cells compare equal to each other.
// It returns the number of rows removed.
func (d *Dataset) DropDuplicates() (int, error) {
	names := d.frame.Names()
	cols := make([]series.Series, len(names))
	for j, name := range names {
		cols[j] = d.frame.Col(name)
	}

	nrow := d.frame.Nrow()
	seen := make(map[string]struct{}, nrow)
	keep := make([]int, 0, nrow)
	var key []byte
	for i := 0; i < nrow; i++ {
		key = key[:0]
		for _, s := range cols {
			key = appendCellKey(key, cellValue(s, i))
		}
		k := string(key)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}

	removed := nrow - len(keep)
	if removed == 0 {
		return 0, nil
	}

	frame := d.frame.Subset(keep)
	if frame.Err != nil {
		return 0, fmt.Errorf("drop duplicates: %w", frame.Err)
	}
	d.frame = frame
	return removed, nil
}

// appendCellKey appends a self-delimiting encoding of v: a type tag followed
// by a quoted value, or a lone 'n' for a missing cell. Negative zero is
// folded into zero.
func appendCellKey(b []byte, v interface{}) []byte {
	switch x := v.(type) {
	case nil:
		return append(b, 'n')
	case float64:
		if x == 0 {
			x = 0
		}
		return strconv.AppendQuote(append(b, 'f'), strconv.FormatFloat(x, 'g', -1, 64))
	case int:
		return strconv.AppendQuote(append(b, 'i'), strconv.Itoa(x))
	case bool:
		return strconv.AppendQuote(append(b, 'b'), strconv.FormatBool(x))
	case string:
		return strconv.AppendQuote(append(b, 's'), x)
	default:
		return strconv.AppendQuote(append(b, 'v'), fmt.Sprint(x))
	}
}

// FillMissing replaces missing cells of every numeric column with the mean of
// the column's present values. Filled columns become float. Columns without
// any present value, and all non-numeric columns, are left untouched.
func (d *Dataset) FillMissing() ([]Fill, error) {
	var fills []Fill
	for _, name := range d.frame.Names() {
		s := d.frame.Col(name)
		if !isNumeric(s.Type()) {
			continue
		}

		values := s.Float()
		present := make(stats.Float64Data, 0, len(values))
		missing := 0
		for i := 0; i < s.Len(); i++ {
			if s.Elem(i).IsNA() {
				missing++
				continue
			}
			present = append(present, values[i])
		}
		if missing == 0 {
			continue
		}

		mean, err := stats.Mean(present)
		if err != nil {
			// no present values, mean undefined
			continue
		}

		for i := 0; i < s.Len(); i++ {
			if s.Elem(i).IsNA() {
				values[i] = mean
			}
		}

		frame := d.frame.Mutate(series.New(values, series.Float, name))
		if frame.Err != nil {
			return fills, fmt.Errorf("fill column %q: %w", name, frame.Err)
		}
		d.frame = frame
		fills = append(fills, Fill{Column: name, Mean: mean, Filled: missing})
	}
	return fills, nil
}
